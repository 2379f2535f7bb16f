package store

import "time"

// Rewards type enum values
const (
	RewardsCashback = "cashback"
	RewardsPoints   = "points"
	RewardsMiles    = "miles"
)

// Apr holds the intro and regular APR display strings for a card.
// IntroApr is nil when the card has no introductory offer.
type Apr struct {
	IntroApr   *string `bson:"introApr" json:"introApr"`
	RegularApr string  `bson:"regularApr" json:"regularApr"`
}

// Rewards holds the rewards attributes of a card. All fields are nil when
// extraction found nothing.
type Rewards struct {
	Rate  *string `bson:"rate" json:"rate"`
	Bonus *string `bson:"bonus" json:"bonus"`
	Type  *string `bson:"type" json:"type"`
}

// Ratings holds 0-5 scale ratings; nil means not rated.
type Ratings struct {
	Overall *float64 `bson:"overall" json:"overall"`
	Fees    *float64 `bson:"fees" json:"fees"`
	Rewards *float64 `bson:"rewards" json:"rewards"`
	Cost    *float64 `bson:"cost" json:"cost"`
}

// Card is the canonical persisted entity. Slug is the natural dedup key:
// at most one card per slug, enforced by lookup-then-create-or-update in the
// importer. ID is assigned at creation and never changes.
type Card struct {
	ID             string    `bson:"_id" json:"id"`
	Slug           string    `bson:"slug" json:"slug"`
	Name           string    `bson:"name" json:"name"`
	AnnualFee      int       `bson:"annualFee" json:"annualFee"`
	AnnualFeeText  string    `bson:"annualFeeText" json:"annualFeeText"`
	Apr            Apr       `bson:"apr" json:"apr"`
	Rewards        Rewards   `bson:"rewards" json:"rewards"`
	Ratings        Ratings   `bson:"ratings" json:"ratings"`
	Pros           []string  `bson:"pros" json:"pros"`
	Cons           []string  `bson:"cons" json:"cons"`
	CreditRequired string    `bson:"creditRequired" json:"creditRequired"`
	Country        string    `bson:"country" json:"country"`
	CountryCode    string    `bson:"countryCode" json:"countryCode"`
	Currency       string    `bson:"currency" json:"currency"`
	CurrencySymbol string    `bson:"currencySymbol" json:"currencySymbol"`
	ImageURL       string    `bson:"imageUrl" json:"imageUrl"`
	ImageFilename  string    `bson:"imageFilename" json:"imageFilename"`
	SearchTerms    []string  `bson:"searchTerms" json:"searchTerms"`
	SourceURL      *string   `bson:"sourceUrl" json:"sourceUrl"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// APIKey is the persisted API key record. The document ID is the SHA-256 hex
// of the raw key; the raw key itself is never stored.
type APIKey struct {
	HashedID   string     `bson:"_id" json:"hashedId"`
	Name       string     `bson:"name" json:"name"`
	RateLimit  int        `bson:"rateLimit" json:"rateLimit"`
	Active     bool       `bson:"active" json:"active"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	LastUsedAt *time.Time `bson:"lastUsedAt" json:"lastUsedAt"`
	UsageCount int64      `bson:"usageCount" json:"usageCount"`
}
