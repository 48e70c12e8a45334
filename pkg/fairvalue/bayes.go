package fairvalue

import (
	"errors"
	"math"
)

// Named constants for the uncertainty model. These are empirically chosen
// calibration values; they are exposed here so recalibration touches one
// place only.
const (
	// BaseUncertainty is the epistemic floor on any posterior estimate.
	BaseUncertainty = 0.15
	// UpdateMagnitudeCoeff scales uncertainty from large prior-to-posterior moves.
	UpdateMagnitudeCoeff = 0.3
	// EvidenceQualityCoeff scales uncertainty from low-quality evidence.
	EvidenceQualityCoeff = 0.2
	// ConsistencyCoeff scales uncertainty from conflicting evidence.
	ConsistencyCoeff = 0.25
	// MaxUncertainty caps the combined uncertainty score.
	MaxUncertainty = 0.4
	// IntervalZ is the z-score used for the confidence interval; 1.0
	// approximates a 68% interval under a normal assumption.
	IntervalZ = 1.0
	// DefaultPointConfidence is assumed when no evidence is available.
	DefaultPointConfidence = 0.3
	// PointUncertaintyCoeff converts (1 - confidence) into uncertainty for
	// bare point estimates.
	PointUncertaintyCoeff = 0.3

	// Probability bounds applied before odds conversion to avoid
	// division by zero at the extremes.
	minProbability = 0.001
	maxProbability = 0.999

	// Bounds on a single item's adjusted likelihood ratio, so no one
	// observation can dominate the posterior.
	minAdjustedLR = 0.1
	maxAdjustedLR = 10.0

	// Floor applied to contributions before taking logs in the
	// consistency calculation.
	minLogContribution = 0.01

	// Variance floor in inverse-variance weighting, guarding against a
	// zero-uncertainty estimate taking infinite weight.
	varianceEpsilon = 0.001

	// Sample-size proxy granted per evidence item.
	samplesPerEvidence = 10
)

var (
	// ErrNoEstimates is returned by CombineEstimates on an empty input.
	ErrNoEstimates = errors.New("no estimates provided")
	// ErrWeightMismatch is returned when the weights slice does not match
	// the estimates slice in length.
	ErrWeightMismatch = errors.New("weights length does not match estimates")
)

// Updater fuses prior probabilities with evidence using odds-space Bayesian
// updating. The weight table is injected at construction and never mutated;
// a single Updater may be shared across goroutines.
type Updater struct {
	weights WeightTable
}

// NewUpdater creates an Updater with the given weight table. A nil table
// falls back to DefaultWeights.
func NewUpdater(weights WeightTable) *Updater {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Updater{weights: weights}
}

// UpdateProbability applies each evidence item to the prior in odds space and
// returns the posterior with an uncertainty band. The operation is total: it
// clamps rather than failing on extreme inputs, and an empty evidence list
// yields a distribution centered on the prior with default confidence.
func (u *Updater) UpdateProbability(prior float64, evidence []Evidence, marketType string) ProbabilityDistribution {
	if len(evidence) == 0 {
		return u.FromPoint(prior, DefaultPointConfidence)
	}

	odds := probabilityToOdds(prior)

	contributions := make([]float64, 0, len(evidence))
	for _, ev := range evidence {
		adjusted := u.adjustLikelihoodRatio(ev, marketType)
		odds *= adjusted
		contributions = append(contributions, adjusted)
	}

	posterior := oddsToProbability(odds)

	uncertainty := u.calculateUncertainty(prior, posterior, evidence, contributions)
	lower, upper := confidenceInterval(posterior, uncertainty)

	return ProbabilityDistribution{
		Mean:       posterior,
		StdDev:     uncertainty,
		CILower:    lower,
		CIUpper:    upper,
		SampleSize: len(evidence) * samplesPerEvidence,
	}
}

// FromPoint builds a distribution from a bare point estimate, deriving the
// uncertainty band from the stated confidence alone.
func (u *Updater) FromPoint(probability, confidence float64) ProbabilityDistribution {
	uncertainty := (1.0 - confidence) * PointUncertaintyCoeff
	lower, upper := confidenceInterval(probability, uncertainty)

	return ProbabilityDistribution{
		Mean:       probability,
		StdDev:     uncertainty,
		CILower:    lower,
		CIUpper:    upper,
		SampleSize: samplesPerEvidence,
	}
}

// CombineEstimates merges independent probability estimates with
// inverse-variance weighting, so tighter estimates count for more. Optional
// weights scale each estimate's influence; nil means equal weighting.
func (u *Updater) CombineEstimates(estimates []ProbabilityDistribution, weights []float64) (ProbabilityDistribution, error) {
	if len(estimates) == 0 {
		return ProbabilityDistribution{}, ErrNoEstimates
	}
	if len(estimates) == 1 {
		return estimates[0], nil
	}

	if weights == nil {
		weights = make([]float64, len(estimates))
		for i := range weights {
			weights[i] = 1.0
		}
	}
	if len(weights) != len(estimates) {
		return ProbabilityDistribution{}, ErrWeightMismatch
	}

	totalInvVar := 0.0
	weightedMean := 0.0
	sampleSize := 0
	for i, est := range estimates {
		invVar := 1.0 / (est.StdDev*est.StdDev + varianceEpsilon)
		totalInvVar += invVar * weights[i]
		weightedMean += est.Mean * invVar * weights[i]
		sampleSize += est.SampleSize
	}

	mean := weightedMean / totalInvVar
	std := math.Sqrt(1.0 / totalInvVar)
	lower, upper := confidenceInterval(mean, std)

	return ProbabilityDistribution{
		Mean:       mean,
		StdDev:     std,
		CILower:    lower,
		CIUpper:    upper,
		SampleSize: sampleSize,
	}, nil
}

// adjustLikelihoodRatio discounts a raw likelihood ratio toward neutral based
// on the item's confidence, its weight, and the market-type multiplier, then
// clamps to keep any single item from creating extreme odds.
func (u *Updater) adjustLikelihoodRatio(ev Evidence, marketType string) float64 {
	discount := ev.Confidence * ev.Weight * u.weights.Multiplier(marketType, ev.Kind)
	adjusted := 1.0 + discount*(ev.LikelihoodRatio-1.0)
	return clamp(adjusted, minAdjustedLR, maxAdjustedLR)
}

// calculateUncertainty combines four independent uncertainty terms in
// quadrature: an epistemic base, the magnitude of the update, the quality of
// the evidence, and how consistently the items point the same way.
func (u *Updater) calculateUncertainty(prior, posterior float64, evidence []Evidence, contributions []float64) float64 {
	updateMagnitude := math.Abs(posterior - prior)

	quality := 0.0
	for _, ev := range evidence {
		quality += ev.Confidence * ev.Weight
	}
	quality /= float64(len(evidence))

	consistency := evidenceConsistency(contributions)

	updateTerm := updateMagnitude * UpdateMagnitudeCoeff
	qualityTerm := (1.0 - quality) * EvidenceQualityCoeff
	consistencyTerm := (1.0 - consistency) * ConsistencyCoeff

	total := math.Sqrt(
		BaseUncertainty*BaseUncertainty +
			updateTerm*updateTerm +
			qualityTerm*qualityTerm +
			consistencyTerm*consistencyTerm,
	)

	return math.Min(MaxUncertainty, total)
}

// evidenceConsistency scores agreement between adjusted ratios as
// exp(-variance) in log space; a single item is perfectly consistent.
func evidenceConsistency(contributions []float64) float64 {
	if len(contributions) <= 1 {
		return 1.0
	}

	logs := make([]float64, len(contributions))
	sum := 0.0
	for i, c := range contributions {
		logs[i] = math.Log(math.Max(minLogContribution, c))
		sum += logs[i]
	}
	mean := sum / float64(len(logs))

	variance := 0.0
	for _, l := range logs {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(logs))

	return clamp(math.Exp(-variance), 0.1, 1.0)
}

// confidenceInterval builds a symmetric interval around the estimate. The
// clamps keep lower <= p <= upper for any in-range probability.
func confidenceInterval(probability, uncertainty float64) (lower, upper float64) {
	margin := IntervalZ * uncertainty
	lower = math.Max(minProbability, probability-margin)
	upper = math.Min(maxProbability, probability+margin)
	return lower, upper
}

func probabilityToOdds(p float64) float64 {
	p = clamp(p, minProbability, maxProbability)
	return p / (1.0 - p)
}

func oddsToProbability(odds float64) float64 {
	return odds / (1.0 + odds)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
