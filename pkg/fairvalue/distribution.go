package fairvalue

// ProbabilityDistribution is a point probability estimate with an explicit
// uncertainty band. StdDev is a calibrated uncertainty score rather than a
// formal standard deviation; it is capped at MaxUncertainty by construction.
// Values are immutable once created.
type ProbabilityDistribution struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	CILower    float64 `json:"ci_lower"`
	CIUpper    float64 `json:"ci_upper"`
	SampleSize int     `json:"sample_size"` // evidentiary-weight proxy, informational only
}

// LowerBound returns the lower edge of the confidence interval.
func (d ProbabilityDistribution) LowerBound() float64 { return d.CILower }

// UpperBound returns the upper edge of the confidence interval.
func (d ProbabilityDistribution) UpperBound() float64 { return d.CIUpper }

// Uncertainty returns the width of the confidence interval.
func (d ProbabilityDistribution) Uncertainty() float64 { return d.CIUpper - d.CILower }
