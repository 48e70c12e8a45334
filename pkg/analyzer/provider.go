// Package analyzer orchestrates market analysis: it anchors a prior,
// gathers evidence from pluggable providers, fuses it into a posterior
// fair value, and sizes a position on the mispriced side.
package analyzer

import (
	"context"
	"strings"

	"github.com/oddsengine/polyfair/pkg/fairvalue"
	"github.com/oddsengine/polyfair/pkg/polymarket/gamma"
)

// EvidenceProvider supplies evidence for a market. Implementations are
// the boundary for external signal sources (news sentiment, polling,
// expert models); errors from a provider are reported on the analysis
// and never abort it.
type EvidenceProvider interface {
	// Name identifies the provider in diagnostics.
	Name() string

	// CanScore reports whether this provider has anything to say
	// about the market.
	CanScore(m *gamma.Market) bool

	// Gather returns evidence items for the market.
	Gather(ctx context.Context, m *gamma.Market) ([]fairvalue.Evidence, error)
}

// PriorSource supplies the prior probability that the YES outcome
// resolves true.
type PriorSource interface {
	Name() string
	Prior(ctx context.Context, m *gamma.Market) (float64, error)
}

// MarketPrior anchors the prior on the market's own YES price. It is
// the default: absent outside information the market consensus is the
// best available base rate.
type MarketPrior struct{}

func (MarketPrior) Name() string { return "market" }

func (MarketPrior) Prior(_ context.Context, m *gamma.Market) (float64, error) {
	p := m.YesPrice().InexactFloat64()
	if p <= 0 || p >= 1 {
		return 0.5, nil
	}
	return p, nil
}

// Market type labels used for evidence weight lookup.
const (
	MarketTypePolitical = "political"
	MarketTypeCrypto    = "crypto"
	MarketTypeSports    = "sports"
	MarketTypeGeneral   = "general"
)

// ClassifyMarket assigns a weight-table market type from the market's
// tags, falling back to question keywords.
func ClassifyMarket(m *gamma.Market) string {
	for _, tag := range m.Tags {
		if t := classifySlug(strings.ToLower(tag.Slug)); t != MarketTypeGeneral {
			return t
		}
		if t := classifySlug(strings.ToLower(tag.Label)); t != MarketTypeGeneral {
			return t
		}
	}
	return classifySlug(strings.ToLower(m.Question))
}

func classifySlug(s string) string {
	switch {
	case containsAny(s, "politic", "election", "president", "senate", "congress", "governor"):
		return MarketTypePolitical
	case containsAny(s, "crypto", "bitcoin", "btc", "ethereum", "eth", "solana"):
		return MarketTypeCrypto
	case containsAny(s, "sport", "nba", "nfl", "mlb", "nhl", "soccer", "premier league", "champions league"):
		return MarketTypeSports
	default:
		return MarketTypeGeneral
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
