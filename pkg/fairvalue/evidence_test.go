package fairvalue

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewEvidence(t *testing.T) {
	tests := []struct {
		name     string
		positive bool
		strength float64
		wantLR   float64
	}{
		{"max supporting", true, 1.0, 4.0},
		{"mild supporting", true, 0.5, 2.5},
		{"neutral", true, 0.0, 1.0},
		{"mild opposing", false, 0.5, 1.0 / 2.5},
		{"max opposing", false, 1.0, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewEvidence(KindNewsSentiment, tt.positive, tt.strength, 0.7, "desc", "src")

			if !approx(ev.LikelihoodRatio, tt.wantLR, 1e-12) {
				t.Errorf("LikelihoodRatio = %v, want %v", ev.LikelihoodRatio, tt.wantLR)
			}
			if ev.LikelihoodRatio <= 0 {
				t.Errorf("LikelihoodRatio must be positive, got %v", ev.LikelihoodRatio)
			}
			if ev.Weight != 1.0 {
				t.Errorf("default Weight = %v, want 1.0", ev.Weight)
			}
			if ev.Confidence != 0.7 {
				t.Errorf("Confidence = %v, want 0.7", ev.Confidence)
			}
		})
	}
}

func TestEvidenceKind_Valid(t *testing.T) {
	for _, k := range []EvidenceKind{
		KindNewsSentiment, KindPollingData, KindMarketBehavior,
		KindTimeDecay, KindExpertOpinion, KindSocialSentiment,
	} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if EvidenceKind("astrology").Valid() {
		t.Error("unknown kind should not be valid")
	}
}

func TestWeightTable_Multiplier(t *testing.T) {
	table := DefaultWeights()

	tests := []struct {
		marketType string
		kind       EvidenceKind
		want       float64
	}{
		{"political", KindPollingData, 1.5},
		{"political", KindSocialSentiment, 0.6},
		{"crypto", KindMarketBehavior, 1.4},
		{"sports", KindExpertOpinion, 1.3},
		{"general", KindNewsSentiment, 1.0},
		// Unknown market type falls back to neutral.
		{"weather", KindNewsSentiment, 1.0},
		// Known market type, unlisted kind falls back to neutral.
		{"crypto", KindPollingData, 1.0},
	}

	for _, tt := range tests {
		if got := table.Multiplier(tt.marketType, tt.kind); got != tt.want {
			t.Errorf("Multiplier(%q, %q) = %v, want %v", tt.marketType, tt.kind, got, tt.want)
		}
	}
}

func TestLoadWeightTable(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "weights.yaml")
		data := []byte(`political:
  polling_data: 1.5
  news_sentiment: 0.8
crypto:
  market_behavior: 1.4
`)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}

		table, err := LoadWeightTable(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := table.Multiplier("political", KindPollingData); got != 1.5 {
			t.Errorf("Multiplier = %v, want 1.5", got)
		}
		if got := table.Multiplier("crypto", KindMarketBehavior); got != 1.4 {
			t.Errorf("Multiplier = %v, want 1.4", got)
		}
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		path := filepath.Join(dir, "bad_kind.yaml")
		if err := os.WriteFile(path, []byte("general:\n  vibes: 2.0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadWeightTable(path); err == nil {
			t.Error("expected error for unknown evidence kind")
		}
	})

	t.Run("non-positive weight rejected", func(t *testing.T) {
		path := filepath.Join(dir, "bad_weight.yaml")
		if err := os.WriteFile(path, []byte("general:\n  news_sentiment: -1.0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadWeightTable(path); err == nil {
			t.Error("expected error for non-positive weight")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadWeightTable(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
