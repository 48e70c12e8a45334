package gamma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestListMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("Expected path /markets, got %s", r.URL.Path)
		}

		markets := []Market{
			{
				ID:               "1",
				Question:         "Will X happen?",
				Active:           true,
				OutcomePricesRaw: `["0.65", "0.35"]`,
				OutcomesRaw:      `["Yes", "No"]`,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(markets)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	markets, err := client.ListMarkets(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}

	if len(markets) != 1 {
		t.Fatalf("Expected 1 market, got %d", len(markets))
	}

	if markets[0].Question != "Will X happen?" {
		t.Errorf("Wrong question: got %s", markets[0].Question)
	}

	if !markets[0].YesPrice().Equal(mustDecimal(t, "0.65")) {
		t.Errorf("Wrong YES price: got %s", markets[0].YesPrice())
	}
}

func TestListMarketsWithFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("active") != "true" {
			t.Errorf("Expected active=true, got %s", query.Get("active"))
		}
		if query.Get("limit") != "10" {
			t.Errorf("Expected limit=10, got %s", query.Get("limit"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Market{})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	active := true
	_, err := client.ListMarkets(context.Background(), &MarketsFilter{
		Active: &active,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}
}

func TestGetMarket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/123" {
			t.Errorf("Expected path /markets/123, got %s", r.URL.Path)
		}

		market := Market{
			ID:       "123",
			Question: "Single market?",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(market)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	market, err := client.GetMarket(context.Background(), "123")
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}

	if market.ID != "123" {
		t.Errorf("Wrong ID: got %s", market.ID)
	}
}

func TestGetMarketBySlug(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("slug") != "test-market" {
			t.Errorf("Expected slug=test-market, got %s", query.Get("slug"))
		}

		markets := []Market{{ID: "1", Slug: "test-market"}}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(markets)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	market, err := client.GetMarketBySlug(context.Background(), "test-market")
	if err != nil {
		t.Fatalf("GetMarketBySlug failed: %v", err)
	}

	if market.ID != "1" {
		t.Errorf("Wrong ID: got %s", market.ID)
	}
}

func TestListEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("Expected path /events, got %s", r.URL.Path)
		}

		events := []Event{
			{ID: "1", Title: "Test Event", Active: true, Slug: "test-event"},
			{ID: "2", Title: "Another Event", Active: true, Slug: "another-event"},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(events)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	events, err := client.ListEvents(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	if len(events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(events))
	}

	if events[0].Title != "Test Event" {
		t.Errorf("Wrong title: got %s", events[0].Title)
	}
}

func TestMarketMethods(t *testing.T) {
	market := Market{
		OutcomePricesRaw: `["0.65", "0.35"]`,
		OutcomesRaw:      `["Yes", "No"]`,
		Active:           true,
	}

	if !market.YesPrice().Equal(mustDecimal(t, "0.65")) {
		t.Errorf("YesPrice wrong: %s", market.YesPrice())
	}

	if !market.NoPrice().Equal(mustDecimal(t, "0.35")) {
		t.Errorf("NoPrice wrong: %s", market.NoPrice())
	}

	if !market.IsTradeable() {
		t.Error("Market should be tradeable")
	}

	if !market.IsBinary() {
		t.Error("Market should be binary")
	}

	market.Closed = true
	if market.IsTradeable() {
		t.Error("Closed market should not be tradeable")
	}
}

func TestMarketMalformedPrices(t *testing.T) {
	market := Market{OutcomePricesRaw: `["0.65", "n/a"]`}

	prices := market.OutcomePrices()
	if len(prices) != 1 {
		t.Fatalf("Expected 1 parseable price, got %d", len(prices))
	}

	if !market.NoPrice().IsZero() {
		t.Errorf("NoPrice should be zero, got %s", market.NoPrice())
	}
}

func TestTimeToResolution(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	market := Market{EndDate: now.Add(48 * time.Hour)}
	if got := market.TimeToResolution(now); got != 48*time.Hour {
		t.Errorf("TimeToResolution wrong: %s", got)
	}

	expired := Market{EndDate: now.Add(-time.Hour)}
	if got := expired.TimeToResolution(now); got != 0 {
		t.Errorf("Expired market should have zero time, got %s", got)
	}

	unset := Market{}
	if got := unset.TimeToResolution(now); got != 0 {
		t.Errorf("Unset end date should have zero time, got %s", got)
	}
}

func TestJSONFloat(t *testing.T) {
	var m Market
	data := `{"id":"1","liquidity":"1234.5","volume":6789.0}`
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if m.Liquidity.Float64() != 1234.5 {
		t.Errorf("Liquidity wrong: %f", m.Liquidity.Float64())
	}

	if m.Volume.Float64() != 6789.0 {
		t.Errorf("Volume wrong: %f", m.Volume.Float64())
	}
}

func TestClientWithOptions(t *testing.T) {
	customClient := &http.Client{Timeout: 60 * time.Second}

	client := NewClient(
		WithBaseURL("https://custom.api.com"),
		WithHTTPClient(customClient),
		WithRateLimit(5.0, 2),
	)

	if client.baseURL != "https://custom.api.com" {
		t.Errorf("Wrong base URL: %s", client.baseURL)
	}

	if client.httpClient != customClient {
		t.Error("Custom HTTP client not set")
	}
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Bad Request"))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.ListMarkets(context.Background(), nil)
	if err == nil {
		t.Error("Expected error for bad request")
	}
}
