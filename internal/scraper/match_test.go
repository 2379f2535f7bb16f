package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchScoreExact(t *testing.T) {
	assert.Equal(t, 1.0, MatchScore("Chase Sapphire Preferred", "chase sapphire preferred"))
	assert.Equal(t, 1.0, MatchScore("Amex Gold", "Amex® Gold"))
}

func TestMatchScoreContainment(t *testing.T) {
	// candidate contains query
	assert.Equal(t, 0.9, MatchScore("sapphire preferred", "Chase Sapphire Preferred Card"))
	// query contains candidate
	assert.Equal(t, 0.85, MatchScore("Chase Sapphire Preferred Card", "sapphire preferred"))
}

func TestMatchScoreWordOverlap(t *testing.T) {
	// 2 of 3 words overlap, plus shared chase and freedom keywords; the
	// keyword bonus pushes the score into the 0.8 cap
	score := MatchScore("chase freedom unlimited", "chase freedom flex")
	assert.InDelta(t, 0.8, score, 0.0001)

	// no overlap at all
	assert.Equal(t, 0.0, MatchScore("tangerine money back", "rbc avion visa"))
}

func TestMatchScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, MatchScore("", "anything"))
	assert.Equal(t, 0.0, MatchScore("anything", ""))
}

func TestBestMatch(t *testing.T) {
	results := []SearchResult{
		{Name: "Chase Freedom Flex", URL: "https://example.com/flex"},
		{Name: "Chase Sapphire Preferred Card", URL: "https://example.com/csp"},
		{Name: "Chase Sapphire Reserve", URL: "https://example.com/csr"},
	}

	best, score, ok := BestMatch("sapphire preferred", results)
	assert.True(t, ok)
	assert.Equal(t, "Chase Sapphire Preferred Card", best.Name)
	assert.Equal(t, 0.9, score)
}

func TestBestMatchTieKeepsFirst(t *testing.T) {
	results := []SearchResult{
		{Name: "Chase Sapphire Preferred", URL: "https://example.com/a"},
		{Name: "chase sapphire preferred", URL: "https://example.com/b"},
	}

	best, score, ok := BestMatch("chase sapphire preferred", results)
	assert.True(t, ok)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "https://example.com/a", best.URL)
}

func TestBestMatchBelowThresholdReturnsFirst(t *testing.T) {
	results := []SearchResult{
		{Name: "Tangerine Money-Back Credit Card", URL: "https://example.com/first"},
		{Name: "BMO CashBack Mastercard", URL: "https://example.com/second"},
	}

	best, _, ok := BestMatch("scotiabank passport visa", results)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/first", best.URL)
}

func TestBestMatchEmpty(t *testing.T) {
	_, _, ok := BestMatch("anything", nil)
	assert.False(t, ok)
}
