// Package gamma provides a read-only client for the Polymarket Gamma
// Markets API, trimmed to the metadata the fair-value analyzer consumes.
package gamma

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Market represents a single binary prediction market.
type Market struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	ConditionID string    `json:"conditionId"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`

	// Outcomes and prices (JSON-encoded arrays of strings)
	OutcomesRaw      string `json:"outcomes"`
	OutcomePricesRaw string `json:"outcomePrices"`

	Liquidity  JSONFloat `json:"liquidity"`
	Volume     JSONFloat `json:"volume"`
	Volume24hr JSONFloat `json:"volume24hr"`
	Spread     JSONFloat `json:"spread"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	EventID string `json:"eventID"`
	Tags    []Tag  `json:"tags,omitempty"`
}

// Event represents a Polymarket event (container for multiple markets).
type Event struct {
	ID          string    `json:"id"`
	Ticker      string    `json:"ticker"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`
	Liquidity   JSONFloat `json:"liquidity"`
	Volume      JSONFloat `json:"volume"`
	Markets     []Market  `json:"markets,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
}

// Tag represents a category tag.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// JSONFloat handles both numeric and string JSON values.
type JSONFloat float64

func (j *JSONFloat) UnmarshalJSON(data []byte) error {
	// Try as number first
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*j = JSONFloat(f)
		return nil
	}

	// Try as string
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("JSONFloat: cannot parse %s", string(data))
	}
	if s == "" {
		*j = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("JSONFloat: cannot parse %q: %w", s, err)
	}
	*j = JSONFloat(f)
	return nil
}

// Float64 returns the value as a plain float64.
func (j JSONFloat) Float64() float64 {
	return float64(j)
}

// IsTradeable reports whether the market is open for analysis.
func (m *Market) IsTradeable() bool {
	return m.Active && !m.Closed && !m.Archived
}

// IsBinary reports whether the market has exactly two outcomes.
func (m *Market) IsBinary() bool {
	return len(m.Outcomes()) == 2
}

// Outcomes returns the parsed outcome labels.
func (m *Market) Outcomes() []string {
	var outcomes []string
	if m.OutcomesRaw == "" {
		return outcomes
	}
	json.Unmarshal([]byte(m.OutcomesRaw), &outcomes)
	return outcomes
}

// OutcomePrices returns the parsed outcome prices as decimals.
// Malformed entries are skipped.
func (m *Market) OutcomePrices() []decimal.Decimal {
	var raw []string
	if m.OutcomePricesRaw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(m.OutcomePricesRaw), &raw); err != nil {
		return nil
	}
	prices := make([]decimal.Decimal, 0, len(raw))
	for _, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		prices = append(prices, d)
	}
	return prices
}

// YesPrice returns the current YES price, or zero if unavailable.
func (m *Market) YesPrice() decimal.Decimal {
	prices := m.OutcomePrices()
	if len(prices) > 0 {
		return prices[0]
	}
	return decimal.Zero
}

// NoPrice returns the current NO price, or zero if unavailable.
func (m *Market) NoPrice() decimal.Decimal {
	prices := m.OutcomePrices()
	if len(prices) > 1 {
		return prices[1]
	}
	return decimal.Zero
}

// TimeToResolution returns the duration until the market's end date,
// or zero if the end date has passed or is unset.
func (m *Market) TimeToResolution(now time.Time) time.Duration {
	if m.EndDate.IsZero() || !m.EndDate.After(now) {
		return 0
	}
	return m.EndDate.Sub(now)
}

// MarketsFilter holds query parameters for listing markets.
type MarketsFilter struct {
	Active    *bool
	Closed    *bool
	Archived  *bool
	Slug      string
	Tag       string
	StartDate string // minimum start date, ISO format
	EndDate   string // maximum end date, ISO format
	Limit     int
	Offset    int
	Order     string
}

// EventsFilter holds query parameters for listing events.
type EventsFilter struct {
	Active   *bool
	Closed   *bool
	Archived *bool
	Slug     string
	Tag      string
	Limit    int
	Offset   int
	Order    string
}
