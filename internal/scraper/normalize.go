package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// issuerKeywords is the fixed table of known issuer names tested against
// card names during search-term generation
var issuerKeywords = []string{
	"chase", "amex", "american express", "citi", "capital one", "discover",
	"wells fargo", "bank of america", "us bank", "barclays",
	"td", "rbc", "bmo", "cibc", "scotiabank", "tangerine", "mbna", "hsbc",
}

// shortTokenAllow whitelists tokens shorter than 3 characters that are still
// meaningful search terms
var shortTokenAllow = map[string]bool{
	"td": true,
	"no": true,
}

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// ParseFee parses an annual-fee display string into whole currency units.
// Currency symbols and thousands separators are stripped; unparsable text
// defaults to 0.
func ParseFee(text string) int {
	digits := nonDigitRe.ReplaceAllString(text, "")
	if digits == "" {
		return 0
	}
	fee, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return fee
}

// InferRewardsType classifies a rewards-rate string as cashback, miles or
// points. Returns "" when no class matches.
func InferRewardsType(rate string) string {
	lower := strings.ToLower(rate)
	switch {
	case lower == "":
		return ""
	case strings.Contains(lower, "cash") || strings.Contains(lower, "%"):
		return "cashback"
	case strings.Contains(lower, "mile"):
		return "miles"
	case strings.Contains(lower, "point") || strings.Contains(lower, "pt"):
		return "points"
	default:
		return ""
	}
}

var punctStripRe = regexp.MustCompile(`[^\pL\pN\s]`)

// BuildSearchTerms generates the denormalized token index persisted with a
// card. The order of tokens is irrelevant; the result is deduplicated.
func BuildSearchTerms(name, slug, rewardsType, creditRequired string, annualFee int) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(token string) {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			return
		}
		if len(token) < 3 && !shortTokenAllow[token] {
			return
		}
		if !seen[token] {
			seen[token] = true
			terms = append(terms, token)
		}
	}

	lowerName := strings.ToLower(StripTrademarks(name))

	// name tokens, plus a punctuation-stripped variant
	for _, tok := range strings.Fields(lowerName) {
		add(tok)
	}
	for _, tok := range strings.Fields(punctStripRe.ReplaceAllString(lowerName, "")) {
		add(tok)
	}

	// slug tokens
	for _, tok := range strings.Split(slug, "-") {
		add(tok)
	}

	if rewardsType != "" {
		add(rewardsType)
	}

	if creditRequired != "" {
		for _, tok := range strings.Fields(creditRequired) {
			add(tok)
		}
	}

	if annualFee == 0 {
		add("no")
		add("annual")
		add("fee")
		add("free")
	}

	for _, issuer := range issuerKeywords {
		if strings.Contains(lowerName, issuer) {
			for _, tok := range strings.Fields(issuer) {
				add(tok)
			}
		}
	}

	return terms
}

// QueryTokens tokenizes a free-text search query the same way search terms
// are generated, so token-set membership queries line up.
func QueryTokens(query string) []string {
	seen := make(map[string]bool)
	var tokens []string
	lower := strings.ToLower(StripTrademarks(query))
	for _, tok := range strings.Fields(punctStripRe.ReplaceAllString(lower, " ")) {
		if len(tok) < 3 && !shortTokenAllow[tok] {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
