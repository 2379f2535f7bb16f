package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// textPattern is one named pattern→handler pair. Keeping the financial-text
// regexes enumerable makes coverage gaps visible instead of burying them in
// one long scan function.
type textPattern struct {
	name    string
	re      *regexp.Regexp
	handler func(m []string, raw *RawCard)
}

var textPatterns = []textPattern{
	{
		name: "annual-fee-labeled",
		re:   regexp.MustCompile(`(?i)annual\s*fee[:\s]*\$\s*([\d,]+)`),
		handler: func(m []string, raw *RawCard) {
			if raw.AnnualFeeText == "" {
				raw.AnnualFeeText = "$" + strings.ReplaceAll(m[1], " ", "")
			}
		},
	},
	{
		name: "annual-fee-amount-first",
		re:   regexp.MustCompile(`(?i)\$\s*([\d,]+)\s*annual\s*fee`),
		handler: func(m []string, raw *RawCard) {
			if raw.AnnualFeeText == "" {
				raw.AnnualFeeText = "$" + strings.ReplaceAll(m[1], " ", "")
			}
		},
	},
	{
		name: "annual-fee-none",
		re:   regexp.MustCompile(`(?i)no\s+annual\s+fee`),
		handler: func(m []string, raw *RawCard) {
			if raw.AnnualFeeText == "" {
				raw.AnnualFeeText = "$0"
			}
		},
	},
	{
		name: "intro-apr-labeled",
		re:   regexp.MustCompile(`(?i)intro(?:ductory)?\s*(?:purchase\s*)?APR[:\s]*([\d.]+%[^.;!\n]{0,60})`),
		handler: func(m []string, raw *RawCard) {
			if raw.IntroAPR == "" {
				raw.IntroAPR = strings.TrimSpace(m[1])
			}
		},
	},
	{
		name: "intro-apr-zero-percent",
		re:   regexp.MustCompile(`(?i)(0%[^.;!\n]{0,40}?intro(?:ductory)?\s*APR[^.;!\n]{0,40})`),
		handler: func(m []string, raw *RawCard) {
			if raw.IntroAPR == "" {
				raw.IntroAPR = strings.TrimSpace(m[1])
			}
		},
	},
	{
		name: "regular-apr-labeled",
		re:   regexp.MustCompile(`(?i)(?:regular|ongoing|standard|purchase)\s*APR[:\s]*([\d.]+%(?:\s*[-–]\s*[\d.]+%)?(?:\s*\(V\))?)`),
		handler: func(m []string, raw *RawCard) {
			if raw.RegularAPR == "" {
				raw.RegularAPR = strings.TrimSpace(m[1])
			}
		},
	},
	{
		name: "regular-apr-range",
		re:   regexp.MustCompile(`(?i)APR[:\s]*([\d.]+%\s*[-–]\s*[\d.]+%)`),
		handler: func(m []string, raw *RawCard) {
			if raw.RegularAPR == "" {
				raw.RegularAPR = strings.TrimSpace(m[1])
			}
		},
	},
	{
		// the leading guard keeps the tail of grouped thousands like
		// "60,000 points" from matching as a rate
		name: "rewards-rate-unit",
		re:   regexp.MustCompile(`(?i)(?:^|[^0-9,.$])(\d+(?:\.\d+)?\s*(?:%\s*cash\s?back|x\s*(?:points?|miles?)|\s*(?:cash\s?back|points?|miles?)))`),
		handler: func(m []string, raw *RawCard) {
			if raw.RewardsRate == "" {
				raw.RewardsRate = strings.TrimSpace(m[1])
			}
		},
	},
	{
		// bare percentages only count as a rewards rate with earn context,
		// otherwise APR figures would be picked up
		name: "rewards-rate-earn-percent",
		re:   regexp.MustCompile(`(?i)earn\s+(?:up\s+to\s+)?(\d+(?:\.\d+)?\s*%)`),
		handler: func(m []string, raw *RawCard) {
			if raw.RewardsRate == "" {
				raw.RewardsRate = strings.TrimSpace(m[1])
			}
		},
	},
	{
		name: "bonus-phrase",
		re:   regexp.MustCompile(`(?i)\bbonus[:\s]+([^.!?\n]{5,120})`),
		handler: func(m []string, raw *RawCard) {
			if raw.RewardsBonus == "" {
				raw.RewardsBonus = strings.TrimSpace(m[1])
			}
		},
	},
	{
		name: "credit-tier-before",
		re:   regexp.MustCompile(`(?i)\b(excellent|good|fair|poor)\s+credit\b`),
		handler: func(m []string, raw *RawCard) {
			if raw.CreditRequired == "" {
				raw.CreditRequired = titleTier(m[1])
			}
		},
	},
	{
		name: "credit-tier-labeled",
		re:   regexp.MustCompile(`(?i)credit\s*(?:score|required|needed|recommended)?[:\s]*\b(excellent|good|fair|poor)\b`),
		handler: func(m []string, raw *RawCard) {
			if raw.CreditRequired == "" {
				raw.CreditRequired = titleTier(m[1])
			}
		},
	},
	{
		name: "credit-score-numeric",
		re:   regexp.MustCompile(`(?i)credit\s*score[^0-9]{0,12}(\d{3})\b`),
		handler: func(m []string, raw *RawCard) {
			if raw.CreditRequired == "" {
				raw.CreditRequired = m[1]
			}
		},
	},
	{
		name: "rating-out-of-five",
		re:   regexp.MustCompile(`(\d(?:\.\d)?)\s*(?:/\s*5|out of 5)`),
		handler: func(m []string, raw *RawCard) {
			if raw.RatingOverall == nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 5 {
					raw.RatingOverall = &v
				}
			}
		},
	},
}

// ApplyTextPatterns runs every named pattern against the page text, filling
// raw fields best effort: a pattern that does not match leaves its field at
// the zero value and never fails the record.
func ApplyTextPatterns(text string, raw *RawCard) {
	for _, p := range textPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			p.handler(m, raw)
		}
	}
}

// ExtractFeeText runs only the annual-fee patterns against a text snippet
func ExtractFeeText(text string) string {
	var raw RawCard
	for _, p := range textPatterns {
		if !strings.HasPrefix(p.name, "annual-fee") {
			continue
		}
		if m := p.re.FindStringSubmatch(text); m != nil {
			p.handler(m, &raw)
		}
	}
	return raw.AnnualFeeText
}

func titleTier(tier string) string {
	lower := strings.ToLower(tier)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
