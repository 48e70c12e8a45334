package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/oddsengine/polyfair/pkg/fairvalue"
	"github.com/oddsengine/polyfair/pkg/polymarket/gamma"
)

const (
	// minBuiltinStrength is the signal strength below which a built-in
	// provider emits no evidence rather than noise.
	minBuiltinStrength = 0.05

	// builtin provider confidence levels; these are weak structural
	// signals compared to real outside information
	timeDecayConfidence      = 0.6
	marketBehaviorConfidence = 0.4

	// volumeBaseline is the 24h volume at which market activity is
	// considered fully established.
	volumeBaseline = 10000.0

	// maxInformativeSpread is the bid-ask spread at which the price
	// carries no information.
	maxInformativeSpread = 0.10
)

// timeScore buckets the days until resolution into a 0..1 score,
// higher when resolution is near.
func timeScore(daysUntilEnd int) float64 {
	switch {
	case daysUntilEnd <= 0:
		return 0.0
	case daysUntilEnd <= 7:
		return 1.0
	case daysUntilEnd <= 30:
		return 0.8
	case daysUntilEnd <= 90:
		return 0.6
	default:
		return 0.3
	}
}

// TimeDecayProvider emits evidence that the current favorite tends to
// hold as resolution approaches: the closer the deadline and the more
// lopsided the price, the stronger the status-quo signal.
type TimeDecayProvider struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (p *TimeDecayProvider) Name() string { return "time_decay" }

func (p *TimeDecayProvider) CanScore(m *gamma.Market) bool {
	if m.EndDate.IsZero() {
		return false
	}
	price := m.YesPrice().InexactFloat64()
	return price > 0 && price < 1
}

func (p *TimeDecayProvider) Gather(_ context.Context, m *gamma.Market) ([]fairvalue.Evidence, error) {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	days := int(m.EndDate.Sub(now).Hours() / 24)
	score := timeScore(days)
	if score == 0 {
		return nil, nil
	}

	price := m.YesPrice().InexactFloat64()
	extremity := math.Abs(price-0.5) * 2

	strength := score * extremity
	if strength < minBuiltinStrength {
		return nil, nil
	}

	favorsYes := price >= 0.5
	desc := fmt.Sprintf("%d days to resolution with price %.2f; status quo favors current leader", days, price)
	ev := fairvalue.NewEvidence(fairvalue.KindTimeDecay, favorsYes, strength, timeDecayConfidence, desc, p.Name())
	return []fairvalue.Evidence{ev}, nil
}

// MarketBehaviorProvider emits evidence from trading activity: heavy
// recent volume with a tight spread means the price is well discovered,
// reinforcing the side the market already favors.
type MarketBehaviorProvider struct{}

func (p *MarketBehaviorProvider) Name() string { return "market_behavior" }

func (p *MarketBehaviorProvider) CanScore(m *gamma.Market) bool {
	if m.Volume24hr.Float64() <= 0 {
		return false
	}
	price := m.YesPrice().InexactFloat64()
	return price > 0 && price < 1
}

func (p *MarketBehaviorProvider) Gather(_ context.Context, m *gamma.Market) ([]fairvalue.Evidence, error) {
	activity := math.Min(1.0, m.Volume24hr.Float64()/volumeBaseline)

	tightness := 1.0
	if spread := m.Spread.Float64(); spread > 0 {
		tightness = 1.0 - math.Min(1.0, spread/maxInformativeSpread)
	}

	price := m.YesPrice().InexactFloat64()
	extremity := math.Abs(price-0.5) * 2

	strength := activity * tightness * extremity
	if strength < minBuiltinStrength {
		return nil, nil
	}

	favorsYes := price >= 0.5
	desc := fmt.Sprintf("24h volume %.0f with spread %.3f confirms price %.2f", m.Volume24hr.Float64(), m.Spread.Float64(), price)
	ev := fairvalue.NewEvidence(fairvalue.KindMarketBehavior, favorsYes, strength, marketBehaviorConfidence, desc, p.Name())
	return []fairvalue.Evidence{ev}, nil
}
