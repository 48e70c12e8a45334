// Package metrics provides Prometheus metrics for the analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics collects and exposes analysis-related Prometheus metrics.
type AnalysisMetrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	ActiveMarkets    prometheus.Gauge
	ScanRuns         *prometheus.CounterVec
	ScanDuration     prometheus.Histogram

	// Estimate metrics
	Posterior      *prometheus.HistogramVec
	Uncertainty    *prometheus.HistogramVec
	EvidenceCount  *prometheus.HistogramVec
	ProviderErrors *prometheus.CounterVec

	// Sizing metrics
	KellyFraction *prometheus.HistogramVec
	Edge          *prometheus.HistogramVec
	NoBetTotal    *prometheus.CounterVec
	Opportunities *prometheus.CounterVec

	// Sanity metrics
	SanityFlags *prometheus.CounterVec
}

// NewAnalysisMetrics creates a new analysis metrics collector with its
// own registry.
func NewAnalysisMetrics() *AnalysisMetrics {
	registry := prometheus.NewRegistry()

	am := &AnalysisMetrics{
		registry: registry,

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfair_analyses_total",
				Help: "Total number of market analyses",
			},
			[]string{"market_type", "side"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyfair_analysis_duration_seconds",
				Help:    "Time to analyze one market",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to ~1.6s
			},
			[]string{"market_type"},
		),
		ActiveMarkets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "polyfair_active_markets",
				Help: "Markets seen in the latest scan",
			},
		),
		ScanRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfair_scan_runs_total",
				Help: "Total number of market scans",
			},
			[]string{"status"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "polyfair_scan_duration_seconds",
				Help:    "Time to complete a full market scan",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5m
			},
		),

		Posterior: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyfair_posterior_probability",
				Help:    "Posterior fair-value estimates",
				Buckets: prometheus.LinearBuckets(0.05, 0.05, 19),
			},
			[]string{"market_type"},
		),
		Uncertainty: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyfair_estimate_uncertainty",
				Help:    "Uncertainty of posterior estimates",
				Buckets: prometheus.LinearBuckets(0.0, 0.05, 9), // 0 to 0.4
			},
			[]string{"market_type"},
		),
		EvidenceCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyfair_evidence_items",
				Help:    "Evidence items gathered per analysis",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"market_type"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfair_provider_errors_total",
				Help: "Evidence provider failures",
			},
			[]string{"provider"},
		),

		KellyFraction: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyfair_kelly_fraction",
				Help:    "Recommended bankroll fractions",
				Buckets: []float64{0, 0.001, 0.005, 0.01, 0.05, 0.10, 0.15, 0.20, 0.25},
			},
			[]string{"side"},
		),
		Edge: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyfair_edge",
				Help:    "Estimated win probability minus market price",
				Buckets: prometheus.LinearBuckets(-0.5, 0.05, 21),
			},
			[]string{"side"},
		),
		NoBetTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfair_no_bet_total",
				Help: "Analyses resolving to no position",
			},
			[]string{"market_type"},
		),
		Opportunities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfair_opportunities_total",
				Help: "Analyses recommending a position",
			},
			[]string{"market_type", "side"},
		),

		SanityFlags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfair_sanity_flags_total",
				Help: "Sanity checker warnings raised",
			},
			[]string{"market_type"},
		),
	}

	am.registerAll()
	return am
}

func (am *AnalysisMetrics) registerAll() {
	am.registry.MustRegister(
		am.AnalysesTotal,
		am.AnalysisDuration,
		am.ActiveMarkets,
		am.ScanRuns,
		am.ScanDuration,
		am.Posterior,
		am.Uncertainty,
		am.EvidenceCount,
		am.ProviderErrors,
		am.KellyFraction,
		am.Edge,
		am.NoBetTotal,
		am.Opportunities,
		am.SanityFlags,
	)
}

// Registry returns the underlying Prometheus registry for exposure via
// promhttp.
func (am *AnalysisMetrics) Registry() *prometheus.Registry {
	return am.registry
}

// RecordAnalysis records the outcome of one market analysis.
func (am *AnalysisMetrics) RecordAnalysis(marketType, side string, durationSec, posterior, uncertainty, edge, kellyFraction float64, evidenceCount, sanityFlags int, opportunity bool) {
	am.AnalysesTotal.WithLabelValues(marketType, side).Inc()
	am.AnalysisDuration.WithLabelValues(marketType).Observe(durationSec)
	am.Posterior.WithLabelValues(marketType).Observe(posterior)
	am.Uncertainty.WithLabelValues(marketType).Observe(uncertainty)
	am.EvidenceCount.WithLabelValues(marketType).Observe(float64(evidenceCount))
	am.Edge.WithLabelValues(side).Observe(edge)
	am.KellyFraction.WithLabelValues(side).Observe(kellyFraction)

	if sanityFlags > 0 {
		am.SanityFlags.WithLabelValues(marketType).Add(float64(sanityFlags))
	}

	if opportunity {
		am.Opportunities.WithLabelValues(marketType, side).Inc()
	} else {
		am.NoBetTotal.WithLabelValues(marketType).Inc()
	}
}

// RecordProviderError records one evidence provider failure.
func (am *AnalysisMetrics) RecordProviderError(provider string) {
	am.ProviderErrors.WithLabelValues(provider).Inc()
}

// RecordScan records a completed market scan.
func (am *AnalysisMetrics) RecordScan(status string, durationSec float64, marketCount int) {
	am.ScanRuns.WithLabelValues(status).Inc()
	am.ScanDuration.Observe(durationSec)
	am.ActiveMarkets.Set(float64(marketCount))
}
