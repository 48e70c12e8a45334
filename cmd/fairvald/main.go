// fairvald is the fair-value analysis daemon.
// It continuously scans Polymarket markets, estimates fair outcome
// probabilities, and publishes position recommendations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/oddsengine/polyfair/pkg/analyzer"
	"github.com/oddsengine/polyfair/pkg/fairvalue"
	"github.com/oddsengine/polyfair/pkg/metrics"
	"github.com/oddsengine/polyfair/pkg/polymarket/gamma"
	"github.com/oddsengine/polyfair/pkg/streaming"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Flags
	httpAddr     = flag.String("http", ":8080", "HTTP server address for status API")
	scanInterval = flag.Duration("scan-interval", 5*time.Minute, "Interval between market scans")
	maxMarkets   = flag.Int("max-markets", 100, "Maximum markets to analyze per scan")
	tag          = flag.String("tag", "", "Only analyze markets with this tag")
	weightsFile  = flag.String("weights", "", "YAML evidence weight table (defaults to built-in)")
	maxKelly     = flag.Float64("max-kelly", fairvalue.DefaultMaxKellyFraction, "Hard cap on recommended bankroll fraction")
	minEdge      = flag.Float64("min-edge", fairvalue.DefaultMinEdge, "Minimum expected value to recommend a position")
	noSanity     = flag.Bool("no-sanity", false, "Disable the sanity post-filter")
	verbose      = flag.Bool("verbose", false, "Log every analysis, not just opportunities")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting fair-value analysis daemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d, err := newDaemon()
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}

	go d.hub.Run(ctx)

	server := d.httpServer()
	go func() {
		log.Printf("HTTP server listening on %s", *httpAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	go d.scanLoop(ctx)

	log.Printf("Daemon running (scan every %s, http=%s)", *scanInterval, *httpAddr)
	log.Printf("WebSocket streaming available at ws://%s/ws", *httpAddr)
	log.Println("Press Ctrl+C to stop")

	<-sigCh
	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	d.mu.RLock()
	log.Printf("Final scan: %d analyses, %d opportunities", len(d.analyses), len(d.opportunities))
	d.mu.RUnlock()

	log.Println("Goodbye!")
}

type daemon struct {
	gammaClient *gamma.Client
	analyzer    *analyzer.Analyzer
	metrics     *metrics.AnalysisMetrics
	hub         *streaming.Hub

	mu            sync.RWMutex
	analyses      []*analyzer.Analysis
	opportunities []*analyzer.Analysis
	lastScan      time.Time
	scans         int
}

func newDaemon() (*daemon, error) {
	opts := []analyzer.Option{
		analyzer.WithSizer(&fairvalue.Sizer{
			MaxKellyFraction:     *maxKelly,
			MinEdge:              *minEdge,
			ConfidenceAdjustment: true,
		}),
	}

	if *weightsFile != "" {
		weights, err := fairvalue.LoadWeightTable(*weightsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, analyzer.WithUpdater(fairvalue.NewUpdater(weights)))
		log.Printf("Loaded evidence weights from %s", *weightsFile)
	}

	if *noSanity {
		opts = append(opts, analyzer.WithSanityChecker(nil))
		log.Println("Sanity post-filter disabled")
	}

	return &daemon{
		gammaClient: gamma.NewClient(),
		analyzer:    analyzer.NewAnalyzer(opts...),
		metrics:     metrics.NewAnalysisMetrics(),
		hub:         streaming.NewHub(),
	}, nil
}

func (d *daemon) scanLoop(ctx context.Context) {
	// First scan immediately, then on the ticker
	d.scan(ctx)

	ticker := time.NewTicker(*scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.scan(ctx)
		}
	}
}

func (d *daemon) scan(ctx context.Context) {
	start := time.Now()

	markets, err := d.fetchMarkets(ctx)
	if err != nil {
		log.Printf("[SCAN] Market fetch failed: %v", err)
		d.metrics.RecordScan("error", time.Since(start).Seconds(), 0)
		d.hub.BroadcastError(err, "market fetch")
		return
	}

	analyses := make([]*analyzer.Analysis, 0, len(markets))
	opportunities := make([]*analyzer.Analysis, 0)

	for i := range markets {
		if ctx.Err() != nil {
			return
		}
		m := &markets[i]
		if !m.IsBinary() {
			continue
		}

		analysis, err := d.analyzer.AnalyzeMarket(ctx, m)
		if err != nil {
			if *verbose {
				log.Printf("[SCAN] Skipping %s: %v", m.ID, err)
			}
			continue
		}

		d.record(analysis)
		analyses = append(analyses, analysis)
		d.hub.BroadcastAnalysis(analysis)

		if analysis.IsOpportunity() {
			opportunities = append(opportunities, analysis)
			d.hub.BroadcastOpportunity(analysis)
			log.Printf("[OPPORTUNITY] %s %s @ %.2f: fair %.2f, bet %.1f%% of bankroll (%s)",
				analysis.Side, analysis.Question, analysis.MarketPrice,
				analysis.WinProbability, analysis.Kelly.RecommendedFraction*100,
				analysis.Kelly.Recommendation)
		} else if *verbose {
			log.Printf("[ANALYSIS] %s @ %.2f: fair %.2f, %s",
				analysis.Question, analysis.MarketPrice,
				analysis.FairValue.Mean, analysis.Kelly.Recommendation)
		}
	}

	d.mu.Lock()
	d.analyses = analyses
	d.opportunities = opportunities
	d.lastScan = start
	d.scans++
	d.mu.Unlock()

	elapsed := time.Since(start)
	d.metrics.RecordScan("ok", elapsed.Seconds(), len(markets))
	d.hub.BroadcastScan(streaming.ScanSummary{
		Markets:       len(markets),
		Analyses:      len(analyses),
		Opportunities: len(opportunities),
		Elapsed:       elapsed,
	})

	log.Printf("[SCAN] %d markets, %d analyses, %d opportunities (%.1fs)",
		len(markets), len(analyses), len(opportunities), elapsed.Seconds())
}

func (d *daemon) fetchMarkets(ctx context.Context) ([]gamma.Market, error) {
	active := true
	closed := false
	return d.gammaClient.ListMarkets(ctx, &gamma.MarketsFilter{
		Active: &active,
		Closed: &closed,
		Tag:    *tag,
		Limit:  *maxMarkets,
		Order:  "volume24hr",
	})
}

func (d *daemon) record(a *analyzer.Analysis) {
	for _, pe := range a.ProviderErrors {
		name := pe
		if i := strings.IndexByte(pe, ':'); i > 0 {
			name = pe[:i]
		}
		d.metrics.RecordProviderError(name)
	}
	d.metrics.RecordAnalysis(
		a.MarketType,
		string(a.Side),
		a.Elapsed.Seconds(),
		a.FairValue.Mean,
		a.FairValue.StdDev,
		a.Edge(),
		a.Kelly.RecommendedFraction,
		len(a.Evidence),
		len(a.Warnings),
		a.IsOpportunity(),
	)
}

func (d *daemon) httpServer() *http.Server {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Status endpoint
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		d.mu.RLock()
		status := map[string]interface{}{
			"scans":         d.scans,
			"last_scan":     d.lastScan,
			"analyses":      len(d.analyses),
			"opportunities": len(d.opportunities),
			"ws_clients":    d.hub.ClientCount(),
		}
		d.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	// Analyses from the latest scan
	mux.HandleFunc("/analyses", func(w http.ResponseWriter, r *http.Request) {
		d.mu.RLock()
		analyses := d.analyses
		d.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(analyses)
	})

	// Opportunities from the latest scan
	mux.HandleFunc("/opportunities", func(w http.ResponseWriter, r *http.Request) {
		d.mu.RLock()
		opportunities := d.opportunities
		d.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(opportunities)
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.HandlerFor(d.metrics.Registry(), promhttp.HandlerOpts{}))

	// WebSocket streaming endpoint
	mux.HandleFunc("/ws", d.hub.ServeWS)

	return &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
