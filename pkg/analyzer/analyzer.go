package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oddsengine/polyfair/pkg/fairvalue"
	"github.com/oddsengine/polyfair/pkg/polymarket/gamma"
)

// Side is the outcome a position is taken on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Analysis is the result of analyzing one market.
type Analysis struct {
	ID         string `json:"id"`
	MarketID   string `json:"market_id"`
	Question   string `json:"question"`
	Slug       string `json:"slug"`
	MarketType string `json:"market_type"`

	Side           Side    `json:"side"`
	MarketPrice    float64 `json:"market_price"`
	WinProbability float64 `json:"win_probability"`
	Confidence     float64 `json:"confidence"`

	FairValue fairvalue.ProbabilityDistribution `json:"fair_value"`
	Evidence  []fairvalue.Evidence              `json:"evidence"`
	Kelly     fairvalue.KellyResult             `json:"kelly"`

	Sane           bool     `json:"sane"`
	Warnings       []string `json:"warnings,omitempty"`
	ProviderErrors []string `json:"provider_errors,omitempty"`

	AnalyzedAt time.Time     `json:"analyzed_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Edge is the gap between estimated win probability and the price paid.
func (a *Analysis) Edge() float64 {
	return a.WinProbability - a.MarketPrice
}

// IsOpportunity reports whether the analysis recommends a position.
func (a *Analysis) IsOpportunity() bool {
	return a.Sane && a.Kelly.RecommendedFraction > 0
}

// Analyzer wires prior, evidence providers, the Bayesian updater, the
// sanity post-filter, and the Kelly sizer into one pipeline. It is safe
// for concurrent use; all configuration is immutable after construction.
type Analyzer struct {
	updater   *fairvalue.Updater
	sizer     *fairvalue.Sizer
	prior     PriorSource
	providers []EvidenceProvider
	sanity    *SanityChecker
	classify  func(*gamma.Market) string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithUpdater sets the Bayesian updater.
func WithUpdater(u *fairvalue.Updater) Option {
	return func(a *Analyzer) { a.updater = u }
}

// WithSizer sets the position sizer.
func WithSizer(s *fairvalue.Sizer) Option {
	return func(a *Analyzer) { a.sizer = s }
}

// WithPriorSource sets the prior source.
func WithPriorSource(p PriorSource) Option {
	return func(a *Analyzer) { a.prior = p }
}

// WithProviders sets the evidence providers, replacing the defaults.
func WithProviders(providers ...EvidenceProvider) Option {
	return func(a *Analyzer) { a.providers = providers }
}

// WithSanityChecker sets the post-filter; nil disables it.
func WithSanityChecker(c *SanityChecker) Option {
	return func(a *Analyzer) { a.sanity = c }
}

// WithClassifier overrides market type classification.
func WithClassifier(fn func(*gamma.Market) string) Option {
	return func(a *Analyzer) { a.classify = fn }
}

// NewAnalyzer creates an analyzer with the standard pipeline: market
// price prior, default weights and sizer, sanity checks on, built-in
// structural providers included.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		updater:  fairvalue.NewUpdater(nil),
		sizer:    fairvalue.DefaultSizer(),
		prior:    MarketPrior{},
		sanity:   NewSanityChecker(),
		classify: ClassifyMarket,
		providers: []EvidenceProvider{
			&TimeDecayProvider{},
			&MarketBehaviorProvider{},
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// AnalyzeMarket runs the full pipeline for one market.
func (a *Analyzer) AnalyzeMarket(ctx context.Context, m *gamma.Market) (*Analysis, error) {
	start := time.Now()

	yesPrice := m.YesPrice().InexactFloat64()
	if yesPrice <= 0 || yesPrice >= 1 {
		return nil, fmt.Errorf("market %s: no usable price", m.ID)
	}

	prior, err := a.prior.Prior(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("prior source %s: %w", a.prior.Name(), err)
	}

	var evidence []fairvalue.Evidence
	var providerErrors []string
	for _, p := range a.providers {
		if !p.CanScore(m) {
			continue
		}
		items, err := p.Gather(ctx, m)
		if err != nil {
			providerErrors = append(providerErrors, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		evidence = append(evidence, items...)
	}

	marketType := a.classify(m)
	posterior := a.updater.UpdateProbability(prior, evidence, marketType)
	fair := posterior.Mean

	confidence := a.confidenceScore(m, evidence)

	sane := true
	var warnings []string
	if a.sanity != nil {
		res := a.sanity.Check(m, fair, len(evidence))
		sane = res.Sane
		warnings = res.Warnings
		confidence -= res.ConfidencePenalty
		if res.AdjustedProbability != nil {
			fair = *res.AdjustedProbability
		}
	}
	if confidence < 0 {
		confidence = 0
	}

	// Pick the underpriced side. NO price falls back to the YES
	// complement when the market omits it.
	noPrice := m.NoPrice().InexactFloat64()
	if noPrice <= 0 || noPrice >= 1 {
		noPrice = 1 - yesPrice
	}

	side := SideYes
	price := yesPrice
	winProb := fair
	if fair < yesPrice {
		side = SideNo
		price = noPrice
		winProb = 1 - fair
	}

	kelly := a.sizer.Size(price, winProb, confidence)

	return &Analysis{
		ID:             uuid.NewString(),
		MarketID:       m.ID,
		Question:       m.Question,
		Slug:           m.Slug,
		MarketType:     marketType,
		Side:           side,
		MarketPrice:    price,
		WinProbability: winProb,
		Confidence:     confidence,
		FairValue:      posterior,
		Evidence:       evidence,
		Kelly:          kelly,
		Sane:           sane,
		Warnings:       warnings,
		ProviderErrors: providerErrors,
		AnalyzedAt:     start,
		Elapsed:        time.Since(start),
	}, nil
}

// AnalyzeMarkets runs the pipeline over a batch, skipping markets that
// cannot be analyzed.
func (a *Analyzer) AnalyzeMarkets(ctx context.Context, markets []gamma.Market) []*Analysis {
	analyses := make([]*Analysis, 0, len(markets))
	for i := range markets {
		if ctx.Err() != nil {
			break
		}
		analysis, err := a.AnalyzeMarket(ctx, &markets[i])
		if err != nil {
			continue
		}
		analyses = append(analyses, analysis)
	}
	return analyses
}

// confidenceScore averages the available confidence factors: evidence
// reliability, time to resolution, and market maturity by volume.
func (a *Analyzer) confidenceScore(m *gamma.Market, evidence []fairvalue.Evidence) float64 {
	var factors []float64

	if len(evidence) > 0 {
		sum := 0.0
		for _, ev := range evidence {
			sum += ev.Confidence
		}
		factors = append(factors, sum/float64(len(evidence)))
	}

	if !m.EndDate.IsZero() {
		days := int(time.Until(m.EndDate).Hours() / 24)
		factors = append(factors, timeScore(days))
	} else {
		factors = append(factors, 0.5)
	}

	if v := m.Volume.Float64(); v > 0 {
		factor := v / volumeBaseline
		if factor > 1 {
			factor = 1
		}
		factors = append(factors, factor)
	}

	if len(factors) == 0 {
		return 0.3
	}

	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}
