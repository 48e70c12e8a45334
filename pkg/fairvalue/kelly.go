package fairvalue

import (
	"fmt"
	"math"
)

// Sizing policy defaults. The 25% cap and 5% minimum edge are deliberate
// safety margins on top of full Kelly.
const (
	DefaultMaxKellyFraction = 0.25
	DefaultMinEdge          = 0.05

	// confidenceFloor is the confidence level below which the working
	// fraction is discounted proportionally.
	confidenceFloor = 0.8

	// longshotPrice marks the market price below which positions are
	// halved; thin longshot markets are where model error hurts most.
	longshotPrice = 0.05

	// Informational warning thresholds on the raw Kelly fraction and the
	// win probability.
	lowWinProbability = 0.3
	highKellyFraction = 0.5

	// ruinFractionMultiplier scales the raw fraction in the heuristic
	// ruin estimate.
	ruinFractionMultiplier = 2.0
	// maxRuinProbability bounds the heuristic below certainty for any
	// positive-edge bet.
	maxRuinProbability = 0.9

	// capEpsilon absorbs floating-point noise so a fraction landing exactly
	// on the cap is not reported as exceeding it.
	capEpsilon = 1e-9
)

// Position size recommendation labels, bucketed on the recommended fraction.
const (
	RecommendNoBet     = "DO NOT BET"
	RecommendVerySmall = "VERY SMALL POSITION (< 1% bankroll)"
	RecommendSmall     = "SMALL POSITION (1-5% bankroll)"
	RecommendModerate  = "MODERATE POSITION (5-15% bankroll)"
	RecommendLarge     = "LARGE POSITION (15-25% bankroll)"
	RecommendMaximum   = "MAXIMUM POSITION (25% bankroll limit)"
)

// KellyResult is the complete sizing analysis for one market position.
// Warnings are data, not errors: a degenerate input produces a well-formed
// no-bet result with an explanatory warning rather than a failure.
type KellyResult struct {
	KellyFraction   float64 `json:"kelly_fraction"` // raw, unconstrained
	ExpectedValue   float64 `json:"expected_value"`
	WinProbability  float64 `json:"win_probability"`
	LoseProbability float64 `json:"lose_probability"`

	OddsIfWin  float64 `json:"odds_if_win"`  // profit per unit staked if correct
	OddsIfLose float64 `json:"odds_if_lose"` // always -1: the stake is lost

	// ProbabilityOfRuin is a heuristic, not a rigorous gambler's-ruin
	// solution; see Sizer.ruinProbability.
	ProbabilityOfRuin  float64 `json:"probability_of_ruin"`
	ExpectedGrowthRate float64 `json:"expected_growth_rate"` // log-utility; may be -Inf

	RecommendedFraction float64 `json:"recommended_fraction"` // after safety adjustments
	MaxBankrollFraction float64 `json:"max_bankroll_fraction"`
	Recommendation      string  `json:"recommendation"`

	Warnings []string `json:"warnings"`
}

// Sizer computes risk-capped Kelly positions. The zero value is not useful;
// construct with DefaultSizer or set the policy fields explicitly. A Sizer is
// immutable after construction and safe for concurrent use.
type Sizer struct {
	MaxKellyFraction     float64 // hard cap on the recommended fraction
	MinEdge              float64 // minimum expected value to bet at all
	ConfidenceAdjustment bool    // discount the fraction below confidenceFloor
}

// DefaultSizer returns a Sizer with the standard safety parameters.
func DefaultSizer() *Sizer {
	return &Sizer{
		MaxKellyFraction:     DefaultMaxKellyFraction,
		MinEdge:              DefaultMinEdge,
		ConfidenceAdjustment: true,
	}
}

// Size computes the Kelly analysis for backing one side of a binary market.
//
// marketPrice is the price of the chosen side's token in (0,1) and
// winProbability the model's probability that this side resolves true; the
// caller selects the side and passes the matching price/probability pair.
// Size never fails: out-of-range prices and negative edges resolve to a
// no-bet result carrying a warning.
func (s *Sizer) Size(marketPrice, winProbability, confidence float64) KellyResult {
	loseProbability := 1.0 - winProbability

	if marketPrice <= 0 || marketPrice >= 1 {
		return s.noBetResult(fmt.Sprintf("Invalid market price (%.3f)", marketPrice), winProbability, loseProbability)
	}

	// Paying p for a token worth 1 on resolution wins (1-p)/p per unit staked.
	oddsIfWin := (1.0 - marketPrice) / marketPrice
	oddsIfLose := -1.0

	expectedValue := winProbability*oddsIfWin + loseProbability*oddsIfLose

	if oddsIfWin <= 0 {
		return s.noBetResult("No positive odds", winProbability, loseProbability)
	}

	// Kelly: f* = (bp - q) / b, unconstrained.
	kellyFraction := (winProbability*oddsIfWin - loseProbability) / oddsIfWin

	var growthRate float64
	switch {
	case kellyFraction > 0 && kellyFraction < 1:
		growthRate = winProbability*math.Log(1.0+kellyFraction*oddsIfWin) +
			loseProbability*math.Log(1.0-kellyFraction)
	case kellyFraction >= 1:
		growthRate = math.Inf(-1)
	default:
		growthRate = expectedValue
	}

	ruin := s.ruinProbability(kellyFraction, winProbability)

	recommended, warnings := s.applySafetyAdjustments(
		kellyFraction, expectedValue, confidence, winProbability, marketPrice,
	)

	return KellyResult{
		KellyFraction:       kellyFraction,
		ExpectedValue:       expectedValue,
		WinProbability:      winProbability,
		LoseProbability:     loseProbability,
		OddsIfWin:           oddsIfWin,
		OddsIfLose:          oddsIfLose,
		ProbabilityOfRuin:   ruin,
		ExpectedGrowthRate:  growthRate,
		RecommendedFraction: recommended,
		MaxBankrollFraction: s.MaxKellyFraction,
		Recommendation:      recommendation(recommended),
		Warnings:            warnings,
	}
}

// ruinProbability approximates the chance of depleting the bankroll under
// repeated play at the given fraction. This is an acknowledged simplification
// kept for behavioral parity: a rigorous treatment would model the bet
// sequence and stopping rule. Do not "fix" the arithmetic.
func (s *Sizer) ruinProbability(kellyFraction, winProbability float64) float64 {
	if kellyFraction <= 0 {
		return 0.0
	}
	if kellyFraction >= 1 {
		return 1.0
	}
	if winProbability <= 0.5 {
		// No edge under repeated play.
		return 1.0
	}

	loseProbability := 1.0 - winProbability
	return math.Min(maxRuinProbability, (loseProbability/winProbability)*kellyFraction*ruinFractionMultiplier)
}

// applySafetyAdjustments runs the fixed pipeline of sizing rules. Hard stops
// (negative EV, sub-threshold edge) zero the fraction immediately; the
// informational checks on win probability and the raw fraction still run so
// their warnings remain visible on no-bet results.
func (s *Sizer) applySafetyAdjustments(kellyFraction, expectedValue, confidence, winProbability, marketPrice float64) (float64, []string) {
	var warnings []string
	adjusted := kellyFraction
	stopped := false

	switch {
	case expectedValue <= 0:
		warnings = append(warnings, fmt.Sprintf("Negative expected value (%.1f%%). Recommended: DO NOT BET", expectedValue*100))
		adjusted = 0.0
		stopped = true
	case expectedValue < s.MinEdge:
		warnings = append(warnings, fmt.Sprintf("Edge too small (%.1f%% < %.1f%%). Recommended: SKIP", expectedValue*100, s.MinEdge*100))
		adjusted = 0.0
		stopped = true
	}

	if !stopped {
		if s.ConfidenceAdjustment && confidence < confidenceFloor {
			multiplier := confidence / confidenceFloor
			adjusted *= multiplier
			warnings = append(warnings, fmt.Sprintf("Low confidence (%.1f%%). Reducing bet size by %.1f%%", confidence*100, (1.0-multiplier)*100))
		}

		if adjusted > s.MaxKellyFraction+capEpsilon {
			warnings = append(warnings, fmt.Sprintf("Capping bet at %.1f%% of bankroll (Kelly suggested %.1f%%)", s.MaxKellyFraction*100, adjusted*100))
		}
		if adjusted > s.MaxKellyFraction {
			adjusted = s.MaxKellyFraction
		}

		if marketPrice < longshotPrice {
			warnings = append(warnings, "Extreme long-shot bet. Consider that market may be efficient.")
			adjusted *= 0.5
		}
	}

	if winProbability < lowWinProbability {
		warnings = append(warnings, fmt.Sprintf("Low win probability (%.1f%%). High risk of total loss.", winProbability*100))
	}
	if kellyFraction > highKellyFraction {
		warnings = append(warnings, "Very high Kelly fraction suggests extreme confidence. Consider model uncertainty.")
	}

	return math.Max(0.0, adjusted), warnings
}

// recommendation buckets a recommended fraction into a display label.
func recommendation(fraction float64) string {
	switch {
	case fraction <= 0:
		return RecommendNoBet
	case fraction < 0.01:
		return RecommendVerySmall
	case fraction < 0.05:
		return RecommendSmall
	case fraction < 0.15:
		return RecommendModerate
	case fraction < 0.25:
		return RecommendLarge
	default:
		return RecommendMaximum
	}
}

// noBetResult builds the terminal result for degenerate inputs.
func (s *Sizer) noBetResult(reason string, winProbability, loseProbability float64) KellyResult {
	return KellyResult{
		KellyFraction:       0.0,
		ExpectedValue:       -1.0,
		WinProbability:      winProbability,
		LoseProbability:     loseProbability,
		OddsIfWin:           0.0,
		OddsIfLose:          -1.0,
		ProbabilityOfRuin:   0.0,
		ExpectedGrowthRate:  0.0,
		RecommendedFraction: 0.0,
		MaxBankrollFraction: s.MaxKellyFraction,
		Recommendation:      RecommendNoBet,
		Warnings:            []string{reason},
	}
}
