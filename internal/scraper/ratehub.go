package scraper

import (
	"net/url"
	"strings"

	"cardscout/cardworker/helpers"

	"github.com/PuerkitoBio/goquery"
)

// cardAltKeywords mark an image alt text as a card name on RateHub listing
// pages, where widgets carry no slugged detail links
var cardAltKeywords = []string{
	"card", "visa", "mastercard", "amex", "american express",
}

// RateHub scrapes ratehub.ca. All cards it produces are Canadian cards.
type RateHub struct{}

// NewRateHub creates the RateHub source
func NewRateHub() *RateHub {
	return &RateHub{}
}

func (r *RateHub) Name() string { return "ratehub" }

func (r *RateHub) Matches(host string) bool {
	return host == "ratehub.ca" || strings.HasSuffix(host, ".ratehub.ca")
}

func (r *RateHub) Locale() Locale {
	return Locale{
		Country:        "Canada",
		CountryCode:    "CA",
		Currency:       "CAD",
		CurrencySymbol: "$",
	}
}

func (r *RateHub) SearchURL(query string) string {
	return "https://www.ratehub.ca/credit-cards/search?q=" + url.QueryEscape(query)
}

func (r *RateHub) Categories() []Category {
	return []Category{
		{Name: "Cash Back", URL: "https://www.ratehub.ca/credit-cards/cash-back"},
		{Name: "Travel", URL: "https://www.ratehub.ca/credit-cards/travel"},
		{Name: "Rewards", URL: "https://www.ratehub.ca/credit-cards/rewards"},
		{Name: "No Fee", URL: "https://www.ratehub.ca/credit-cards/no-fee"},
		{Name: "Low Interest", URL: "https://www.ratehub.ca/credit-cards/low-interest"},
		{Name: "Student", URL: "https://www.ratehub.ca/credit-cards/student"},
		{Name: "Secured", URL: "https://www.ratehub.ca/credit-cards/secured"},
	}
}

var ratehubTitleSelectors = []string{
	"h1[data-testid='card-name']",
	"h1.card-title",
	".card-detail-header h1",
	"main h1",
	"h1",
}

var ratehubProsSelectors = []string{
	"section[data-testid='pros'] li",
	".pros-cons .pros li",
	".card-pros li",
	"div[class*='pros'] li",
}

var ratehubConsSelectors = []string{
	"section[data-testid='cons'] li",
	".pros-cons .cons li",
	".card-cons li",
	"div[class*='cons'] li",
}

func (r *RateHub) ExtractDetail(doc *goquery.Document, pageURL string) *RawCard {
	name := extractTitle(doc, ratehubTitleSelectors)
	if name == "" {
		return nil
	}

	raw := &RawCard{
		Name:      name,
		SourceURL: pageURL,
	}

	raw.ImageURL = extractCardImage(doc, pageURL, name)
	raw.Pros = extractList(doc, ratehubProsSelectors)
	raw.Cons = extractList(doc, ratehubConsSelectors)

	ApplyTextPatterns(helpers.CollapseWhitespace(doc.Find("body").Text()), raw)

	return raw
}

// ExtractListing identifies RateHub card widgets by card-image alt text:
// widgets do not carry slugged detail links, so the alt text heuristic keys
// the de-duplication.
func (r *RateHub) ExtractListing(doc *goquery.Document, pageURL string) []*RawCard {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var cards []*RawCard

	doc.Find("img[alt]").Each(func(_ int, s *goquery.Selection) {
		alt := helpers.CollapseWhitespace(s.AttrOr("alt", ""))
		if !isCardAlt(alt) {
			return
		}

		name := StripTrademarks(alt)
		normalized := NormalizeName(name)
		if seen[normalized] {
			return
		}
		seen[normalized] = true

		raw := &RawCard{
			Name:      name,
			SourceURL: pageURL,
		}

		src := strings.TrimSpace(s.AttrOr("src", s.AttrOr("data-src", "")))
		if src != "" && !strings.HasPrefix(src, "data:") {
			raw.ImageURL = resolveURL(base, src)
		}

		container := climbToInfoContainer(s)
		extractFromContainer(container, raw)
		if container != nil && raw.DetailURL == "" {
			if href := container.Find("a[href*='/credit-cards/']").First().AttrOr("href", ""); href != "" {
				raw.DetailURL = resolveURL(base, href)
			}
		}

		cards = append(cards, raw)
	})

	return cards
}

func (r *RateHub) ExtractSearch(doc *goquery.Document, pageURL string) []SearchResult {
	var results []SearchResult
	for _, raw := range r.ExtractListing(doc, pageURL) {
		result := SearchResult{
			Name:          raw.Name,
			URL:           raw.DetailURL,
			ImageURL:      raw.ImageURL,
			AnnualFeeText: raw.AnnualFeeText,
		}
		if raw.RatingOverall != nil {
			result.Rating = *raw.RatingOverall
		}
		results = append(results, result)
	}
	return results
}

// isCardAlt applies the card-name heuristic: at least two words and one
// card-ish keyword or known issuer
func isCardAlt(alt string) bool {
	if len(strings.Fields(alt)) < 2 {
		return false
	}
	lower := strings.ToLower(alt)
	if helpers.ContainsAny(lower, cardAltKeywords...) {
		return true
	}
	for _, issuer := range issuerKeywords {
		if strings.Contains(lower, issuer) {
			return true
		}
	}
	return false
}
