package gamma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuestionTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Will Trump win the 2028 election?", []string{"trump", "win", "2028", "election"}},
		{"Will BTC be above $100k by December?", []string{"btc", "above", "100k", "december"}},
		{"Café résumé", []string{"cafe", "resume"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := questionTokens(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("questionTokens(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("questionTokens(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestRankMarkets(t *testing.T) {
	markets := []Market{
		{ID: "1", Question: "Will Trump win the 2028 presidential election?"},
		{ID: "2", Question: "Will BTC reach $150k in 2026?"},
		{ID: "3", Question: "Will the Lakers win the NBA championship?"},
	}

	matches := RankMarkets(markets, "Trump 2028 election", 10)
	if len(matches) == 0 {
		t.Fatal("Expected at least one match")
	}

	if matches[0].Market.ID != "1" {
		t.Errorf("Best match should be market 1, got %s", matches[0].Market.ID)
	}

	if matches[0].Score != 1.0 {
		t.Errorf("Expected perfect score, got %f", matches[0].Score)
	}

	for _, m := range matches {
		if m.Market.ID == "2" {
			t.Error("Unrelated market should not match")
		}
	}
}

func TestRankMarketsLimit(t *testing.T) {
	markets := []Market{
		{ID: "1", Question: "Will the senate pass the bill?"},
		{ID: "2", Question: "Will the house pass the bill?"},
		{ID: "3", Question: "Will the president sign the bill?"},
	}

	matches := RankMarkets(markets, "pass the bill", 2)
	if len(matches) != 2 {
		t.Errorf("Expected 2 matches with limit, got %d", len(matches))
	}
}

func TestRankMarketsEmptyQuery(t *testing.T) {
	markets := []Market{{ID: "1", Question: "Will X happen?"}}

	if matches := RankMarkets(markets, "", 10); matches != nil {
		t.Errorf("Empty query should yield no matches, got %d", len(matches))
	}
	// All stop words
	if matches := RankMarkets(markets, "will the", 10); matches != nil {
		t.Errorf("Stop-word query should yield no matches, got %d", len(matches))
	}
}

func TestSearchMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		markets := []Market{
			{ID: "1", Question: "Will Biden run in 2028?", Active: true},
			{ID: "2", Question: "Will ETH flip BTC?", Active: true},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(markets)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	matches, err := client.SearchMarkets(context.Background(), "Biden 2028", 5)
	if err != nil {
		t.Fatalf("SearchMarkets failed: %v", err)
	}

	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	if matches[0].Market.ID != "1" {
		t.Errorf("Wrong match: %s", matches[0].Market.ID)
	}
}
