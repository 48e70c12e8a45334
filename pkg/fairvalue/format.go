package fairvalue

import (
	"fmt"
	"math"
	"strings"
)

// FormatAnalysis renders a KellyResult as multi-line text for display or
// audit logs. The output is UI-agnostic; callers decide where it goes.
func FormatAnalysis(result KellyResult) string {
	var b strings.Builder

	b.WriteString("Kelly Criterion Analysis:\n\n")

	fmt.Fprintf(&b, "  Win Probability: %.1f%%\n", result.WinProbability*100)
	fmt.Fprintf(&b, "  Expected Value:  %.1f%%\n", result.ExpectedValue*100)
	fmt.Fprintf(&b, "  Kelly Fraction:  %.1f%%\n", result.KellyFraction*100)
	b.WriteString("\n")

	if result.RecommendedFraction > 0 {
		fmt.Fprintf(&b, "  Recommended Position: %.1f%% of bankroll\n", result.RecommendedFraction*100)
		fmt.Fprintf(&b, "  Position Size: %s\n", result.Recommendation)
	} else {
		b.WriteString("  Recommendation: DO NOT BET\n")
	}
	b.WriteString("\n")

	b.WriteString("Risk Assessment:\n")
	fmt.Fprintf(&b, "  Probability of Ruin: %.1f%%\n", result.ProbabilityOfRuin*100)
	fmt.Fprintf(&b, "  Chance of Total Loss: %.1f%%\n", result.LoseProbability*100)
	if !math.IsInf(result.ExpectedGrowthRate, -1) {
		fmt.Fprintf(&b, "  Expected Growth Rate: %.4f\n", result.ExpectedGrowthRate)
	} else {
		b.WriteString("  Expected Growth Rate: -inf (over-betting)\n")
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
