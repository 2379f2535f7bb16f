package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
)

const wallethubDetailHTML = `<html>
<head><title>Chase Sapphire Preferred Card | WalletHub</title></head>
<body>
	<h1 class="card-name">Chase Sapphire Preferred® Card</h1>
	<img src="/common/logo.png" alt="WalletHub logo">
	<img src="https://cdn.wallethub.com/cards/sapphire-preferred.png" alt="Chase Sapphire Preferred Card">
	<div class="pros-cons">
		<div class="pros"><ul><li>High rewards rate</li><li>Great travel perks</li></ul></div>
		<div class="cons"><ul><li>Has annual fee</li></ul></div>
	</div>
	<p>Annual fee: $95. Purchase APR: 20.99% - 27.99%.</p>
	<p>Earn 5x points on travel. Good credit recommended.</p>
	<p>Rated 4.8/5 by our editors.</p>
</body>
</html>`

func TestWalletHubExtractDetail(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(wallethubDetailHTML))
	assert.NoError(t, err)

	src := NewWalletHub()
	raw := src.ExtractDetail(doc, "https://wallethub.com/d/chase-sapphire-preferred-22c/")
	if !assert.NotNil(t, raw) {
		return
	}

	assert.Equal(t, "Chase Sapphire Preferred Card", raw.Name)
	assert.Equal(t, "https://wallethub.com/d/chase-sapphire-preferred-22c/", raw.SourceURL)
	assert.Equal(t, "https://cdn.wallethub.com/cards/sapphire-preferred.png", raw.ImageURL)
	assert.Equal(t, "$95", raw.AnnualFeeText)
	assert.Equal(t, "20.99% - 27.99%", raw.RegularAPR)
	assert.Equal(t, "5x points", raw.RewardsRate)
	assert.Equal(t, "Good", raw.CreditRequired)
	assert.Equal(t, []string{"High rewards rate", "Great travel perks"}, raw.Pros)
	assert.Equal(t, []string{"Has annual fee"}, raw.Cons)
	if assert.NotNil(t, raw.RatingOverall) {
		assert.Equal(t, 4.8, *raw.RatingOverall)
	}
}

func TestWalletHubExtractDetailTitleFallback(t *testing.T) {
	html := `<html>
<head><title>Citi Double Cash Card | WalletHub Review</title></head>
<body><p>No headline on this page.</p></body>
</html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	assert.NoError(t, err)

	raw := NewWalletHub().ExtractDetail(doc, "https://wallethub.com/d/citi-double-cash-33c/")
	if assert.NotNil(t, raw) {
		assert.Equal(t, "Citi Double Cash Card", raw.Name)
	}
}

func TestWalletHubExtractDetailNoName(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	assert.NoError(t, err)

	raw := NewWalletHub().ExtractDetail(doc, "https://wallethub.com/d/unknown-1c/")
	assert.Nil(t, raw)
}

const wallethubListingHTML = `<html><body>
	<div class="card-widget">
		<a href="/d/chase-sapphire-preferred-22c/">Chase Sapphire Preferred Card</a>
		<img src="/cards/csp.png" alt="Chase Sapphire Preferred Card">
		<p>Annual fee: $95. Earn 5x points on travel.</p>
	</div>
	<div class="card-widget">
		<a href="/d/chase-freedom-unlimited-50c/"><img src="/cards/cfu.png" alt="Chase Freedom Unlimited"></a>
		<p>No annual fee. 1.5% cash back on everything.</p>
	</div>
	<a href="/d/chase-sapphire-preferred-22c/">Chase Sapphire Preferred Card</a>
	<a href="/answers/credit-cards/some-question/">Not a card link</a>
</body></html>`

func TestWalletHubExtractListing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(wallethubListingHTML))
	assert.NoError(t, err)

	cards := NewWalletHub().ExtractListing(doc, "https://wallethub.com/credit-cards/travel/")
	if !assert.Len(t, cards, 2) {
		return
	}

	assert.Equal(t, "Chase Sapphire Preferred Card", cards[0].Name)
	assert.Equal(t, "https://wallethub.com/d/chase-sapphire-preferred-22c/", cards[0].DetailURL)
	assert.Equal(t, "$95", cards[0].AnnualFeeText)
	assert.Equal(t, "5x points", cards[0].RewardsRate)
	assert.Equal(t, "https://wallethub.com/cards/csp.png", cards[0].ImageURL)

	// name comes from the image alt when the anchor has no text
	assert.Equal(t, "Chase Freedom Unlimited", cards[1].Name)
	assert.Equal(t, "$0", cards[1].AnnualFeeText)
	assert.Equal(t, "1.5% cash back", cards[1].RewardsRate)
	assert.Equal(t, "https://wallethub.com/cards/cfu.png", cards[1].ImageURL)
}

func TestWalletHubExtractSearch(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(wallethubListingHTML))
	assert.NoError(t, err)

	results := NewWalletHub().ExtractSearch(doc, "https://wallethub.com/search?q=chase")
	if !assert.Len(t, results, 2) {
		return
	}

	assert.Equal(t, "Chase Sapphire Preferred Card", results[0].Name)
	assert.Equal(t, "https://wallethub.com/d/chase-sapphire-preferred-22c/", results[0].URL)
	assert.Equal(t, "$95", results[0].AnnualFeeText)
	assert.Equal(t, "Chase Freedom Unlimited", results[1].Name)
	assert.Equal(t, "$0", results[1].AnnualFeeText)
}

func TestWalletHubMatches(t *testing.T) {
	src := NewWalletHub()
	assert.True(t, src.Matches("wallethub.com"))
	assert.True(t, src.Matches("www.wallethub.com"))
	assert.False(t, src.Matches("ratehub.ca"))
	assert.False(t, src.Matches("notwallethub.com"))
}
