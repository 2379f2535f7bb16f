package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"cardscout/cardworker/internal/scraper"
	errs "cardscout/cardworker/pkg/errors"
	"cardscout/cardworker/services/publisher"
	"cardscout/cardworker/services/store"

	"github.com/google/uuid"
)

// UpsertResult reports the outcome of reconciling one extracted record with
// persisted state
type UpsertResult struct {
	Card    *store.Card `json:"card"`
	Created bool        `json:"created"`
	Changed []string    `json:"changed,omitempty"`
}

// Upsert reconciles a freshly extracted record with the store, keyed by
// slug. Create when absent; update only when forceUpdate is set, preserving
// id and createdAt. There is no transaction across the read-diff-write
// sequence: concurrent upserts of the same slug are last-write-wins, which
// is acceptable for the single-operator usage pattern.
func (im *Importer) Upsert(ctx context.Context, src scraper.Source, raw *scraper.RawCard, forceUpdate bool) (*UpsertResult, error) {
	if raw == nil || strings.TrimSpace(raw.Name) == "" {
		return nil, errs.NewNotFound(src.Name(), "extracted record has no card name")
	}

	slug := scraper.Slugify(raw.Name)
	if slug == "" {
		return nil, errs.NewValidation(src.Name(), fmt.Sprintf("card name %q produces an empty slug", raw.Name))
	}

	existing, err := im.cards.GetBySlug(ctx, slug)
	if err != nil {
		return nil, errs.NewInternal(src.Name(), "slug lookup failed", err)
	}

	if existing != nil && !forceUpdate {
		return &UpsertResult{Card: existing}, nil
	}

	next := im.buildCard(raw, src, slug)

	if existing == nil {
		next.ID = uuid.NewString()
		now := time.Now()
		next.CreatedAt = now
		next.UpdatedAt = now
		next.ImageURL, next.ImageFilename = im.fetchImage(ctx, slug, raw.ImageURL)

		if err := im.cards.Create(ctx, next); err != nil {
			return nil, errs.NewInternal(src.Name(), "failed to persist card", err)
		}
		im.publishEvent(publisher.ActionCreated, next, src, nil)
		return &UpsertResult{Card: next, Created: true}, nil
	}

	changed := diffFields(existing, next)
	merged := mergeCard(existing, next)

	// stored filenames carry an extension after the slug-hash stem; a stem
	// mismatch means the source image URL changed or the previous download
	// failed
	stem := imageFilename(slug, raw.ImageURL)
	if raw.ImageURL != "" && !strings.HasPrefix(existing.ImageFilename, stem) {
		merged.ImageURL, merged.ImageFilename = im.fetchImage(ctx, slug, raw.ImageURL)
		changed = append(changed, "imageUrl")
	}

	merged.UpdatedAt = time.Now()
	if err := im.cards.Update(ctx, merged); err != nil {
		return nil, errs.NewInternal(src.Name(), "failed to persist card update", err)
	}
	im.publishEvent(publisher.ActionUpdated, merged, src, changed)
	return &UpsertResult{Card: merged, Changed: changed}, nil
}

// buildCard normalizes raw extracted strings into the persisted card shape.
// Identity and lifecycle fields are left for the caller.
func (im *Importer) buildCard(raw *scraper.RawCard, src scraper.Source, slug string) *store.Card {
	locale := src.Locale()
	fee := scraper.ParseFee(raw.AnnualFeeText)
	rewardsType := scraper.InferRewardsType(raw.RewardsRate)

	card := &store.Card{
		Slug:          slug,
		Name:          raw.Name,
		AnnualFee:     fee,
		AnnualFeeText: raw.AnnualFeeText,
		Apr: store.Apr{
			IntroApr:   optional(raw.IntroAPR),
			RegularApr: raw.RegularAPR,
		},
		Rewards: store.Rewards{
			Rate:  optional(raw.RewardsRate),
			Bonus: optional(raw.RewardsBonus),
			Type:  optional(rewardsType),
		},
		Ratings: store.Ratings{
			Overall: raw.RatingOverall,
			Fees:    raw.RatingFees,
			Rewards: raw.RatingRewards,
			Cost:    raw.RatingCost,
		},
		Pros:           raw.Pros,
		Cons:           raw.Cons,
		CreditRequired: raw.CreditRequired,
		Country:        locale.Country,
		CountryCode:    locale.CountryCode,
		Currency:       locale.Currency,
		CurrencySymbol: locale.CurrencySymbol,
		SearchTerms:    scraper.BuildSearchTerms(raw.Name, slug, rewardsType, raw.CreditRequired, fee),
		SourceURL:      optional(raw.SourceURL),
	}
	return card
}

// diffFields compares every caller-visible field and returns the names of
// those that would change. Image handling is diffed separately.
func diffFields(existing, next *store.Card) []string {
	var changed []string
	record := func(field string, differs bool) {
		if differs {
			changed = append(changed, field)
		}
	}

	record("name", existing.Name != next.Name)
	record("annualFee", existing.AnnualFee != next.AnnualFee)
	record("annualFeeText", existing.AnnualFeeText != next.AnnualFeeText)
	record("apr.introApr", !strPtrEq(existing.Apr.IntroApr, next.Apr.IntroApr))
	record("apr.regularApr", existing.Apr.RegularApr != next.Apr.RegularApr)
	record("rewards.rate", !strPtrEq(existing.Rewards.Rate, next.Rewards.Rate))
	record("rewards.bonus", !strPtrEq(existing.Rewards.Bonus, next.Rewards.Bonus))
	record("rewards.type", !strPtrEq(existing.Rewards.Type, next.Rewards.Type))
	record("ratings.overall", !f64PtrEq(existing.Ratings.Overall, next.Ratings.Overall))
	record("ratings.fees", !f64PtrEq(existing.Ratings.Fees, next.Ratings.Fees))
	record("ratings.rewards", !f64PtrEq(existing.Ratings.Rewards, next.Ratings.Rewards))
	record("ratings.cost", !f64PtrEq(existing.Ratings.Cost, next.Ratings.Cost))
	record("creditRequired", existing.CreditRequired != next.CreditRequired)
	record("pros", !strSliceEq(existing.Pros, next.Pros))
	record("cons", !strSliceEq(existing.Cons, next.Cons))

	return changed
}

// mergeCard applies the freshly extracted values onto the existing record,
// preserving id, createdAt and the current image until the image side effect
// decides otherwise
func mergeCard(existing, next *store.Card) *store.Card {
	merged := *next
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged.ImageURL = existing.ImageURL
	merged.ImageFilename = existing.ImageFilename
	return &merged
}

// fetchImage downloads and re-uploads card art. This side effect is allowed
// to fail without failing the upsert: failure degrades to an empty image URL
// and a warning log.
func (im *Importer) fetchImage(ctx context.Context, slug, remoteURL string) (string, string) {
	if remoteURL == "" {
		return "", ""
	}

	data, contentType, err := im.download.Download(ctx, remoteURL)
	if err != nil {
		im.log.Warn().Err(err).Str("slug", slug).Str("url", remoteURL).Msg("image download failed")
		return "", ""
	}

	filename := imageFilename(slug, remoteURL)
	if ext := extensionFor(contentType, remoteURL); ext != "" {
		filename += ext
	}

	publicURL, err := im.images.Upload(ctx, data, filename, contentType)
	if err != nil {
		im.log.Warn().Err(err).Str("slug", slug).Msg("image upload failed")
		return "", ""
	}
	return publicURL, filename
}

// imageFilename derives a stable filename stem from the slug and the remote
// URL, so a changed source image produces a different filename and triggers
// a re-download on update
func imageFilename(slug, remoteURL string) string {
	if remoteURL == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(remoteURL))
	return slug + "-" + hex.EncodeToString(sum[:])[:10]
}

func extensionFor(contentType, remoteURL string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	}
	if ext := strings.ToLower(path.Ext(remoteURL)); len(ext) >= 2 && len(ext) <= 5 {
		return ext
	}
	return ""
}

func (im *Importer) publishEvent(action string, card *store.Card, src scraper.Source, changed []string) {
	if im.pub == nil {
		return
	}
	event := publisher.CardEvent{
		Action:    action,
		CardID:    card.ID,
		Slug:      card.Slug,
		Source:    src.Name(),
		Changed:   changed,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		im.log.Warn().Err(err).Msg("failed to marshal card event")
		return
	}
	if err := im.pub.Publish(src.Name(), data); err != nil {
		im.log.Warn().Err(err).Str("slug", card.Slug).Msg("failed to publish card event")
	}
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func f64PtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strSliceEq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
