package analyzer

import (
	"fmt"
	"math"
	"time"

	"github.com/oddsengine/polyfair/pkg/polymarket/gamma"
)

// SanityChecker post-filters a fair-value estimate against market
// reality before it reaches position sizing.
type SanityChecker struct {
	// MaxDeviation is the largest tolerated ratio of predicted
	// probability to market probability.
	MaxDeviation float64

	// ExtremeProbability bounds estimates considered extreme
	// (below it, or above its complement).
	ExtremeProbability float64

	// ThinEvidenceCount is the evidence count at or below which an
	// extreme estimate is considered unsupported.
	ThinEvidenceCount int

	// ShortDeadline flags large moves priced within this window.
	ShortDeadline time.Duration

	// LargeMove is the predicted-vs-market gap treated as a large
	// move for the deadline check.
	LargeMove float64

	// LowVolume is the total volume below which prices are suspect.
	LowVolume float64

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// sanity confidence penalties
const (
	deviationPenalty    = 0.3
	extremePenalty      = 0.4
	deadlinePenalty     = 0.2
	maxSanityPenalty    = 0.5
	sanityFailThreshold = 0.5
)

// NewSanityChecker returns a checker with the standard thresholds.
func NewSanityChecker() *SanityChecker {
	return &SanityChecker{
		MaxDeviation:       10.0,
		ExtremeProbability: 0.05,
		ThinEvidenceCount:  1,
		ShortDeadline:      30 * 24 * time.Hour,
		LargeMove:          0.3,
		LowVolume:          10000,
	}
}

// SanityResult carries the outcome of the post-filter.
type SanityResult struct {
	// Sane is false when warnings accumulate enough penalty that the
	// estimate should not be traded on.
	Sane bool

	Warnings []string

	// ConfidencePenalty is subtracted from the analysis confidence,
	// capped at 0.5.
	ConfidencePenalty float64

	// AdjustedProbability is non-nil when the checker reverts an
	// unsupported extreme estimate toward market consensus.
	AdjustedProbability *float64
}

// Check validates a predicted YES probability against the market.
// evidenceCount is the number of evidence items behind the estimate.
func (c *SanityChecker) Check(m *gamma.Market, predicted float64, evidenceCount int) SanityResult {
	var warnings []string
	penalty := 0.0
	var adjusted *float64

	marketProb := m.YesPrice().InexactFloat64()

	// Extreme deviation from market consensus
	if marketProb > 0 {
		deviation := predicted / marketProb
		if deviation > c.MaxDeviation {
			warnings = append(warnings, fmt.Sprintf(
				"prediction (%.1f%%) is %.1fx higher than market (%.1f%%); consider market efficiency",
				predicted*100, deviation, marketProb*100))
			penalty += deviationPenalty
		}
	}

	// Extreme probability without supporting evidence: revert halfway
	// toward market consensus
	if predicted < c.ExtremeProbability || predicted > 1-c.ExtremeProbability {
		if evidenceCount <= c.ThinEvidenceCount {
			warnings = append(warnings, fmt.Sprintf(
				"extreme probability (%.1f%%) with only %d evidence item(s); reverting toward market consensus",
				predicted*100, evidenceCount))
			penalty += extremePenalty
			if marketProb > 0 && marketProb < 1 {
				a := (predicted + marketProb) / 2
				adjusted = &a
			}
		}
	}

	// Large move priced on a short deadline
	if !m.EndDate.IsZero() {
		now := time.Now()
		if c.Now != nil {
			now = c.Now()
		}
		remaining := m.EndDate.Sub(now)
		if remaining > 0 && remaining < c.ShortDeadline && math.Abs(predicted-marketProb) > c.LargeMove {
			days := int(remaining.Hours() / 24)
			warnings = append(warnings, fmt.Sprintf(
				"predicting a %.0f-point move from market with only %d days remaining",
				math.Abs(predicted-marketProb)*100, days))
			penalty += deadlinePenalty
		}
	}

	// Thin markets: price itself is unreliable
	if v := m.Volume.Float64(); v > 0 && v < c.LowVolume {
		warnings = append(warnings, fmt.Sprintf(
			"low market volume ($%.0f); price may not reflect true probability", v))
	}

	penalty = math.Min(penalty, maxSanityPenalty)

	return SanityResult{
		Sane:                len(warnings) == 0 || penalty < sanityFailThreshold,
		Warnings:            warnings,
		ConfidencePenalty:   penalty,
		AdjustedProbability: adjusted,
	}
}
