package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"cardscout/cardworker/helpers"

	"github.com/PuerkitoBio/goquery"
)

// detailLinkRe matches WalletHub card detail-page paths: /d/<slug>-<digits>c
var detailLinkRe = regexp.MustCompile(`(?i)/d/([a-z0-9-]+)-(\d+)c(?:/|$|\?)`)

// WalletHub scrapes wallethub.com. All cards it produces are US cards.
type WalletHub struct{}

// NewWalletHub creates the WalletHub source
func NewWalletHub() *WalletHub {
	return &WalletHub{}
}

func (w *WalletHub) Name() string { return "wallethub" }

func (w *WalletHub) Matches(host string) bool {
	return host == "wallethub.com" || strings.HasSuffix(host, ".wallethub.com")
}

func (w *WalletHub) Locale() Locale {
	return Locale{
		Country:        "United States",
		CountryCode:    "US",
		Currency:       "USD",
		CurrencySymbol: "$",
	}
}

func (w *WalletHub) SearchURL(query string) string {
	return "https://wallethub.com/search?q=" + url.QueryEscape(query)
}

func (w *WalletHub) Categories() []Category {
	return []Category{
		{Name: "Cash Back", URL: "https://wallethub.com/credit-cards/cash-back/"},
		{Name: "Travel", URL: "https://wallethub.com/credit-cards/travel/"},
		{Name: "No Annual Fee", URL: "https://wallethub.com/credit-cards/no-annual-fee/"},
		{Name: "Balance Transfer", URL: "https://wallethub.com/credit-cards/balance-transfer/"},
		{Name: "Rewards", URL: "https://wallethub.com/credit-cards/rewards/"},
		{Name: "Student", URL: "https://wallethub.com/credit-cards/student/"},
		{Name: "Secured", URL: "https://wallethub.com/credit-cards/secured/"},
	}
}

var wallethubTitleSelectors = []string{
	"h1.card-name",
	".card-header h1",
	"h1[itemprop='name']",
	"main h1",
	"h1",
}

var wallethubProsSelectors = []string{
	".pros-cons .pros li",
	".pros-list li",
	"ul.pros li",
	"div[class*='pros'] li",
}

var wallethubConsSelectors = []string{
	".pros-cons .cons li",
	".cons-list li",
	"ul.cons li",
	"div[class*='cons'] li",
}

func (w *WalletHub) ExtractDetail(doc *goquery.Document, pageURL string) *RawCard {
	name := extractTitle(doc, wallethubTitleSelectors)
	if name == "" {
		return nil
	}

	raw := &RawCard{
		Name:      name,
		SourceURL: pageURL,
	}

	raw.ImageURL = extractCardImage(doc, pageURL, name)
	raw.Pros = extractList(doc, wallethubProsSelectors)
	raw.Cons = extractList(doc, wallethubConsSelectors)

	ApplyTextPatterns(helpers.CollapseWhitespace(doc.Find("body").Text()), raw)

	return raw
}

func (w *WalletHub) ExtractListing(doc *goquery.Document, pageURL string) []*RawCard {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var cards []*RawCard

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !detailLinkRe.MatchString(href) {
			return
		}

		name := widgetName(s)
		if name == "" {
			return
		}
		normalized := NormalizeName(name)
		if seen[normalized] {
			return
		}
		seen[normalized] = true

		raw := &RawCard{
			Name:      name,
			DetailURL: resolveURL(base, href),
			SourceURL: pageURL,
		}

		container := climbToInfoContainer(s)
		extractFromContainer(container, raw)
		if container != nil && raw.ImageURL == "" {
			raw.ImageURL = widgetImage(container, base)
		}

		cards = append(cards, raw)
	})

	return cards
}

func (w *WalletHub) ExtractSearch(doc *goquery.Document, pageURL string) []SearchResult {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var results []SearchResult

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !detailLinkRe.MatchString(href) {
			return
		}

		name := widgetName(s)
		if name == "" {
			return
		}
		normalized := NormalizeName(name)
		if seen[normalized] {
			return
		}
		seen[normalized] = true

		result := SearchResult{
			Name: name,
			URL:  resolveURL(base, href),
		}

		if container := climbToInfoContainer(s); container != nil {
			text := helpers.CollapseWhitespace(container.Text())
			result.AnnualFeeText = ExtractFeeText(text)
			var raw RawCard
			ApplyTextPatterns(text, &raw)
			if raw.RatingOverall != nil {
				result.Rating = *raw.RatingOverall
			}
			result.ImageURL = widgetImage(container, base)
		}

		results = append(results, result)
	})

	return results
}

// widgetName pulls the card name from a widget anchor: anchor text first,
// then a contained image's alt text
func widgetName(s *goquery.Selection) string {
	name := helpers.CollapseWhitespace(s.Text())
	if name == "" {
		name = helpers.CollapseWhitespace(s.Find("img").AttrOr("alt", ""))
	}
	return StripTrademarks(name)
}

// widgetImage finds the card art inside a listing widget container
func widgetImage(container *goquery.Selection, base *url.URL) string {
	var out string
	container.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := strings.TrimSpace(img.AttrOr("src", img.AttrOr("data-src", "")))
		if src == "" || strings.HasPrefix(src, "data:") || helpers.ContainsAny(src, imageURLBlocklist...) {
			return true
		}
		out = resolveURL(base, src)
		return false
	})
	return out
}
