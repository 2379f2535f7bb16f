package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Chase Sapphire Preferred® Card", "chase-sapphire-preferred-card"},
		{"Capital One Venture X", "capital-one-venture-x"},
		{"  TD© Cash Back Visa™  ", "td-cash-back-visa"},
		{"Blue Cash Everyday® (from Amex)", "blue-cash-everyday-from-amex"},
		{"---", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Slugify(c.name), c.name)
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	names := []string{
		"Chase Sapphire Preferred® Card",
		"already-a-slug",
		"Citi Double Cash®",
	}
	for _, name := range names {
		once := Slugify(name)
		assert.Equal(t, once, Slugify(once), name)
	}
}

func TestStripTrademarks(t *testing.T) {
	assert.Equal(t, "Amex Gold", StripTrademarks("Amex® Gold™"))
	assert.Equal(t, "plain", StripTrademarks("plain"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "chase sapphire preferred card",
		NormalizeName("  Chase   Sapphire\nPreferred® Card "))
	assert.Equal(t, "", NormalizeName("   "))
}
