package scraper

import (
	"net/url"
	"strings"

	"cardscout/cardworker/helpers"

	"github.com/PuerkitoBio/goquery"
)

// containerKeywords mark a listing-widget ancestor as the card's info
// container during the bounded ancestor climb
var containerKeywords = []string{
	"annual fee", "rewards", "apr", "cash back", "cashback",
	"welcome bonus", "interest rate",
}

// maxAncestorClimb bounds the ancestor walk from a widget anchor to its info
// container
const maxAncestorClimb = 6

// imageURLBlocklist filters logos, icons and sprites when hunting for the
// card art image
var imageURLBlocklist = []string{"logo", "icon", "sprite", "favicon", "avatar", "badge"}

// extractTitle walks an ordered list of selectors and falls back to the page
// title, stripped of the site-name suffix and trademark glyphs.
func extractTitle(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := helpers.CollapseWhitespace(doc.Find(sel).First().Text())
		if text != "" {
			return StripTrademarks(text)
		}
	}

	title := helpers.CollapseWhitespace(doc.Find("title").First().Text())
	for _, sep := range []string{" | ", " - ", " – "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	return StripTrademarks(strings.TrimSpace(title))
}

// extractCardImage finds the first plausible card-art image: non-logo,
// non-icon, preferring images whose alt text shares a word with the card name
func extractCardImage(doc *goquery.Document, pageURL, cardName string) string {
	base, _ := url.Parse(pageURL)
	nameWords := strings.Fields(NormalizeName(cardName))

	var first, named string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			src, ok = s.Attr("data-src")
			if !ok || strings.TrimSpace(src) == "" {
				return true
			}
		}
		src = strings.TrimSpace(src)
		if strings.HasPrefix(src, "data:") || helpers.ContainsAny(src, imageURLBlocklist...) {
			return true
		}

		resolved := resolveURL(base, src)
		if first == "" {
			first = resolved
		}

		alt := NormalizeName(s.AttrOr("alt", ""))
		for _, w := range nameWords {
			if len(w) > 2 && strings.Contains(alt, w) {
				named = resolved
				return false
			}
		}
		return true
	})

	if named != "" {
		return named
	}
	return first
}

// extractList pulls text items from the first matching container selector;
// candidates are not merged across selectors
func extractList(doc *goquery.Document, selectors []string) []string {
	for _, sel := range selectors {
		items := doc.Find(sel)
		if items.Length() == 0 {
			continue
		}
		var out []string
		items.Each(func(_ int, s *goquery.Selection) {
			text := helpers.CollapseWhitespace(s.Text())
			if text != "" {
				out = append(out, text)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// climbToInfoContainer walks up the ancestor chain from a widget anchor,
// bounded, looking for a container whose text carries fee/rewards keywords.
// Returns nil when no ancestor qualifies.
func climbToInfoContainer(s *goquery.Selection) *goquery.Selection {
	node := s
	for i := 0; i < maxAncestorClimb; i++ {
		node = node.Parent()
		if node.Length() == 0 {
			return nil
		}
		if helpers.ContainsAny(node.Text(), containerKeywords...) {
			return node
		}
	}
	return nil
}

// extractFromContainer runs the text patterns against a widget container,
// scoped to that container's text only
func extractFromContainer(container *goquery.Selection, raw *RawCard) {
	if container == nil || container.Length() == 0 {
		return
	}
	ApplyTextPatterns(helpers.CollapseWhitespace(container.Text()), raw)
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
