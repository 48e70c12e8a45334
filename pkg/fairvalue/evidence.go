// Package fairvalue implements Bayesian evidence fusion and Kelly-Criterion
// position sizing for prediction markets.
//
// The two calculators are pure and stateless: an Updater fuses a prior
// probability with weighted evidence into a posterior distribution, and a
// Sizer turns a probability/confidence pair into a risk-capped bankroll
// fraction. Neither performs I/O and both are safe for concurrent use.
package fairvalue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EvidenceKind identifies the type of an evidence observation.
type EvidenceKind string

const (
	KindNewsSentiment   EvidenceKind = "news_sentiment"
	KindPollingData     EvidenceKind = "polling_data"
	KindMarketBehavior  EvidenceKind = "market_behavior"
	KindTimeDecay       EvidenceKind = "time_decay"
	KindExpertOpinion   EvidenceKind = "expert_opinion"
	KindSocialSentiment EvidenceKind = "social_sentiment"
)

// Valid reports whether k is one of the known evidence kinds.
func (k EvidenceKind) Valid() bool {
	switch k {
	case KindNewsSentiment, KindPollingData, KindMarketBehavior,
		KindTimeDecay, KindExpertOpinion, KindSocialSentiment:
		return true
	}
	return false
}

// Evidence is a single weighted observation for Bayesian updating.
//
// LikelihoodRatio is P(evidence|hypothesis) / P(evidence|not hypothesis);
// 1.0 is uninformative. Description and Source are provenance only and never
// enter the computation.
type Evidence struct {
	Kind            EvidenceKind `json:"kind"`
	LikelihoodRatio float64      `json:"likelihood_ratio"`
	Confidence      float64      `json:"confidence"` // 0-1, reliability of this observation
	Weight          float64      `json:"weight"`     // 0-1, importance of this kind in context
	Description     string       `json:"description"`
	Source          string       `json:"source"`
}

// strengthScale maps a strength in [0,1] onto a likelihood ratio range of
// roughly [0.25, 4.0] per item.
const strengthScale = 3.0

// NewEvidence builds an Evidence item from a signed signal and a strength in
// [0,1]. Supporting signals map to ratios above 1, opposing signals to the
// reciprocal range. Weight defaults to 1.0 and can be adjusted by the caller.
func NewEvidence(kind EvidenceKind, positiveSignal bool, strength, confidence float64, description, source string) Evidence {
	var lr float64
	if positiveSignal {
		lr = 1.0 + strength*strengthScale
	} else {
		lr = 1.0 / (1.0 + strength*strengthScale)
	}

	return Evidence{
		Kind:            kind,
		LikelihoodRatio: lr,
		Confidence:      confidence,
		Weight:          1.0,
		Description:     description,
		Source:          source,
	}
}

// WeightTable holds per-market-type multipliers for each evidence kind.
// It is read-only after construction; the calculators never write to it.
type WeightTable map[string]map[EvidenceKind]float64

// Multiplier returns the weight for an evidence kind in a market context.
// Unknown market types and unlisted kinds fall back to a neutral 1.0.
func (t WeightTable) Multiplier(marketType string, kind EvidenceKind) float64 {
	kinds, ok := t[marketType]
	if !ok {
		return 1.0
	}
	w, ok := kinds[kind]
	if !ok {
		return 1.0
	}
	return w
}

// DefaultWeights returns the built-in per-market-type evidence weights.
func DefaultWeights() WeightTable {
	return WeightTable{
		"political": {
			KindPollingData:     1.5,
			KindNewsSentiment:   0.8,
			KindSocialSentiment: 0.6,
			KindExpertOpinion:   1.2,
			KindMarketBehavior:  1.0,
			KindTimeDecay:       0.9,
		},
		"crypto": {
			KindMarketBehavior:  1.4,
			KindNewsSentiment:   1.1,
			KindSocialSentiment: 1.0,
			KindExpertOpinion:   0.8,
			KindTimeDecay:       1.2,
		},
		"sports": {
			KindExpertOpinion:   1.3,
			KindNewsSentiment:   1.0,
			KindMarketBehavior:  1.1,
			KindSocialSentiment: 0.7,
			KindTimeDecay:       0.8,
		},
		"general": {
			KindNewsSentiment:   1.0,
			KindMarketBehavior:  1.0,
			KindExpertOpinion:   1.0,
			KindSocialSentiment: 0.8,
			KindTimeDecay:       1.0,
		},
	}
}

// LoadWeightTable reads a weight table from a YAML file laid out as
// market_type -> evidence_kind -> multiplier.
func LoadWeightTable(path string) (WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight table: %w", err)
	}

	var raw map[string]map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse weight table: %w", err)
	}

	table := make(WeightTable, len(raw))
	for marketType, kinds := range raw {
		table[marketType] = make(map[EvidenceKind]float64, len(kinds))
		for name, w := range kinds {
			kind := EvidenceKind(name)
			if !kind.Valid() {
				return nil, fmt.Errorf("weight table %q: unknown evidence kind %q", marketType, name)
			}
			if w <= 0 {
				return nil, fmt.Errorf("weight table %q: non-positive weight %v for %q", marketType, w, name)
			}
			table[marketType][kind] = w
		}
	}

	return table, nil
}
