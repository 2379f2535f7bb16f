package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyTextPatternsFullPage(t *testing.T) {
	text := "Chase Sapphire Preferred Card review. Annual fee: $95. " +
		"Intro APR: 0% for 12 months on purchases. " +
		"Purchase APR: 20.99% - 27.99%. " +
		"Welcome bonus: 60,000 points after spending $4,000 in 3 months. " +
		"Earn 5x points on travel booked through the portal. " +
		"Good credit recommended. Rated 4.8/5 by our editors."

	var raw RawCard
	ApplyTextPatterns(text, &raw)

	assert.Equal(t, "$95", raw.AnnualFeeText)
	assert.Equal(t, "0% for 12 months on purchases", raw.IntroAPR)
	assert.Equal(t, "20.99% - 27.99%", raw.RegularAPR)
	assert.Equal(t, "5x points", raw.RewardsRate)
	assert.Equal(t, "60,000 points after spending $4,000 in 3 months", raw.RewardsBonus)
	assert.Equal(t, "Good", raw.CreditRequired)
	if assert.NotNil(t, raw.RatingOverall) {
		assert.Equal(t, 4.8, *raw.RatingOverall)
	}
}

func TestApplyTextPatternsNoAnnualFee(t *testing.T) {
	var raw RawCard
	ApplyTextPatterns("This card has no annual fee and earns 1.5% cash back everywhere.", &raw)

	assert.Equal(t, "$0", raw.AnnualFeeText)
	assert.Equal(t, "1.5% cash back", raw.RewardsRate)
}

func TestApplyTextPatternsFirstMatchWins(t *testing.T) {
	var raw RawCard
	ApplyTextPatterns("Annual fee: $95. The premium version has an annual fee: $450.", &raw)
	assert.Equal(t, "$95", raw.AnnualFeeText)

	// already-filled fields are not overwritten by later calls either
	ApplyTextPatterns("Annual fee: $450.", &raw)
	assert.Equal(t, "$95", raw.AnnualFeeText)
}

func TestApplyTextPatternsThousandsSeparator(t *testing.T) {
	var raw RawCard
	ApplyTextPatterns("Annual fee: $1,234 for the first year.", &raw)
	assert.Equal(t, "$1,234", raw.AnnualFeeText)
	assert.Equal(t, 1234, ParseFee(raw.AnnualFeeText))
}

func TestApplyTextPatternsBareAPRIsNotRewards(t *testing.T) {
	// a bare percentage with APR context must not be read as a rewards rate
	var raw RawCard
	ApplyTextPatterns("Purchase APR: 17.99% on all balances.", &raw)

	assert.Equal(t, "17.99%", raw.RegularAPR)
	assert.Equal(t, "", raw.RewardsRate)
}

func TestApplyTextPatternsEarnPercent(t *testing.T) {
	var raw RawCard
	ApplyTextPatterns("Earn up to 6% at supermarkets on eligible purchases.", &raw)
	assert.Equal(t, "6%", raw.RewardsRate)
}

func TestApplyTextPatternsCreditScoreNumeric(t *testing.T) {
	var raw RawCard
	ApplyTextPatterns("Applicants need a credit score of 700 or higher.", &raw)
	assert.Equal(t, "700", raw.CreditRequired)
}

func TestApplyTextPatternsMissingFieldsStayZero(t *testing.T) {
	var raw RawCard
	ApplyTextPatterns("Nothing useful on this page.", &raw)

	assert.Equal(t, "", raw.AnnualFeeText)
	assert.Equal(t, "", raw.IntroAPR)
	assert.Equal(t, "", raw.RegularAPR)
	assert.Equal(t, "", raw.RewardsRate)
	assert.Nil(t, raw.RatingOverall)
}

func TestExtractFeeText(t *testing.T) {
	assert.Equal(t, "$120", ExtractFeeText("Annual Fee: $120 waived first year"))
	assert.Equal(t, "$0", ExtractFeeText("no annual fee, 1% cash back"))
	assert.Equal(t, "", ExtractFeeText("nothing about fees here"))
}
