package gamma

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minMatchScore is the token-overlap score below which a market is not
// considered a match for the query.
const minMatchScore = 0.3

// MarketMatch pairs a market with its match score against a query.
type MarketMatch struct {
	Market Market
	Score  float64
}

// SearchMarkets fetches tradeable markets and ranks them against the
// query by normalized token overlap. Results are sorted by score,
// best first, capped at limit.
func (c *Client) SearchMarkets(ctx context.Context, query string, limit int) ([]MarketMatch, error) {
	markets, err := c.ListAllTradeableMarkets(ctx)
	if err != nil {
		return nil, err
	}
	matches := RankMarkets(markets, query, limit)
	return matches, nil
}

// RankMarkets scores each market's question against the query and
// returns matches above the threshold, best first.
func RankMarkets(markets []Market, query string, limit int) []MarketMatch {
	queryTokens := questionTokens(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var matches []MarketMatch
	for _, m := range markets {
		score := matchScore(queryTokens, questionTokens(m.Question))
		if score >= minMatchScore {
			matches = append(matches, MarketMatch{Market: m, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// matchScore returns the fraction of query tokens present in the
// candidate's token set.
func matchScore(query, candidate []string) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(candidate))
	for _, tok := range candidate {
		set[tok] = struct{}{}
	}
	hits := 0
	for _, tok := range query {
		if _, ok := set[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// questionTokens normalizes a question and splits it into significant
// lowercase tokens, dropping punctuation and stop words.
func questionTokens(s string) []string {
	s = normalizeText(s)

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// normalizeText lowercases and strips diacritics.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)
	return s
}

// stopWords are tokens too common in market questions to carry signal.
var stopWords = map[string]struct{}{
	"will": {}, "the": {}, "a": {}, "an": {}, "of": {}, "in": {},
	"on": {}, "by": {}, "to": {}, "be": {}, "is": {}, "at": {},
	"for": {}, "and": {}, "or": {}, "before": {}, "after": {},
}
