package scraper

import (
	"regexp"
	"strings"
)

var (
	trademarkReplacer = strings.NewReplacer("®", "", "™", "", "©", "")
	slugInvalidRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// StripTrademarks removes trademark glyphs from extracted names
func StripTrademarks(s string) string {
	return trademarkReplacer.Replace(s)
}

// Slugify derives the dedup key from a card name: lowercase alphanumerics
// and single hyphens, no leading/trailing hyphens. Idempotent.
func Slugify(name string) string {
	s := strings.ToLower(StripTrademarks(name))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeName prepares a display name for comparison: trademark glyphs
// stripped, lowercased, whitespace collapsed.
func NormalizeName(name string) string {
	s := strings.ToLower(StripTrademarks(name))
	return strings.Join(strings.Fields(s), " ")
}
