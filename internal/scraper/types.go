package scraper

import "github.com/PuerkitoBio/goquery"

// RawCard is the raw field set produced by extraction: the persisted card
// shape minus identity, lifecycle and locale. Produced fresh on every scrape
// and never persisted directly. Extraction is best effort, so any field may
// be left at its zero value.
type RawCard struct {
	Name           string
	ImageURL       string
	AnnualFeeText  string
	IntroAPR       string
	RegularAPR     string
	RewardsRate    string
	RewardsBonus   string
	CreditRequired string
	RatingOverall  *float64
	RatingFees     *float64
	RatingRewards  *float64
	RatingCost     *float64
	Pros           []string
	Cons           []string
	SourceURL      string

	// DetailURL is set by listing extraction when the widget links to a
	// detail page worth re-fetching individually
	DetailURL string
}

// SearchResult is the ephemeral shape produced by the search flow
type SearchResult struct {
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	ImageURL      string  `json:"imageUrl"`
	AnnualFeeText string  `json:"annualFeeText"`
	Rating        float64 `json:"rating"`
}

// Category is one entry of a source's fixed category table
type Category struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Locale carries the country and currency attributes a source stamps onto
// every card it produces
type Locale struct {
	Country        string
	CountryCode    string
	Currency       string
	CurrencySymbol string
}

// Source is the per-site extraction surface. A markup change on a source
// site touches only that site's implementation.
type Source interface {
	// Name returns the source identifier used in logs and events
	Name() string

	// Matches reports whether the given URL host belongs to this source
	Matches(host string) bool

	// Locale returns the country/currency attributes for this source's cards
	Locale() Locale

	// SearchURL builds the search-results page URL for a query
	SearchURL(query string) string

	// Categories returns the fixed category table for import-all
	Categories() []Category

	// ExtractDetail produces a single raw card from a detail page.
	// Returns nil when no card name could be extracted.
	ExtractDetail(doc *goquery.Document, pageURL string) *RawCard

	// ExtractListing produces raw candidates from a category/listing page,
	// de-duplicated by normalized name. Records without names are dropped.
	ExtractListing(doc *goquery.Document, pageURL string) []*RawCard

	// ExtractSearch produces search results from a search-results page
	ExtractSearch(doc *goquery.Document, pageURL string) []SearchResult
}
