package scraper

import (
	"strings"

	"cardscout/cardworker/logger"
)

// highValueKeywords are shared tokens that bump word-overlap scores:
// issuer names and card-tier words that disambiguate similarly named cards
var highValueKeywords = []string{
	"chase", "amex", "citi", "discover", "capital", "wells", "barclays",
	"sapphire", "platinum", "preferred", "premier", "reserve", "freedom",
	"quicksilver", "venture", "gold", "infinite", "elite", "dividend",
	"aeroplan", "cash", "unlimited",
}

// matchThreshold is the confidence floor below which the matcher warns but
// still returns the first result
const matchThreshold = 0.5

// MatchScore scores a candidate result name against a user query, both
// normalized. 1.0 exact, 0.9 candidate-contains-query, 0.85
// query-contains-candidate; otherwise word overlap with a keyword bonus,
// capped at 0.8.
func MatchScore(query, candidate string) float64 {
	q := NormalizeName(query)
	c := NormalizeName(candidate)

	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1.0
	}
	if strings.Contains(c, q) {
		return 0.9
	}
	if strings.Contains(q, c) {
		return 0.85
	}

	queryWords := strings.Fields(q)
	candidateWords := strings.Fields(c)

	matches := 0
	for _, qw := range queryWords {
		if len(qw) <= 2 {
			continue
		}
		for _, cw := range candidateWords {
			if strings.Contains(cw, qw) || strings.Contains(qw, cw) {
				matches++
				break
			}
		}
	}

	denom := len(queryWords)
	if len(candidateWords) > denom {
		denom = len(candidateWords)
	}
	if denom == 0 {
		return 0
	}
	score := float64(matches) / float64(denom)

	for _, kw := range highValueKeywords {
		if strings.Contains(q, kw) && strings.Contains(c, kw) {
			score += 0.1
		}
	}

	if score > 0.8 {
		score = 0.8
	}
	return score
}

// BestMatch selects the highest-scoring result for a query; ties keep the
// earlier result. When even the best score is below the confidence floor the
// first result is returned anyway with a logged warning - the search flow
// always surfaces something.
func BestMatch(query string, results []SearchResult) (SearchResult, float64, bool) {
	if len(results) == 0 {
		return SearchResult{}, 0, false
	}

	best := results[0]
	bestScore := MatchScore(query, results[0].Name)
	for _, r := range results[1:] {
		score := MatchScore(query, r.Name)
		if score > bestScore {
			best = r
			bestScore = score
		}
	}

	if bestScore < matchThreshold {
		logger.Warn("low-confidence match for query %q: best candidate %q scored %.2f, returning first result %q",
			query, best.Name, bestScore, results[0].Name)
		return results[0], MatchScore(query, results[0].Name), true
	}

	return best, bestScore, true
}
