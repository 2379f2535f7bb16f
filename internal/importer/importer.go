package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cardscout/cardworker/internal/scraper"
	"cardscout/cardworker/logger"
	errs "cardscout/cardworker/pkg/errors"
	"cardscout/cardworker/services/publisher"
	"cardscout/cardworker/services/store"

	"github.com/PuerkitoBio/goquery"
)

// PageFetcher loads pages from source sites. Satisfied by scraper.Fetcher.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*goquery.Document, error)
	FetchListing(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// ImageDownloader pulls remote card art bytes
type ImageDownloader interface {
	Download(ctx context.Context, imageURL string) ([]byte, string, error)
}

// ImageStore persists card art and hands back a public URL
type ImageStore interface {
	Upload(ctx context.Context, data []byte, path, contentType string) (string, error)
}

// Importer drives the fetch-extract-normalize-upsert pipeline for every
// scrape flow
type Importer struct {
	fetcher  PageFetcher
	cards    store.CardStore
	images   ImageStore
	download ImageDownloader
	pub      publisher.Publisher
	sources  []scraper.Source
	delay    time.Duration
	log      *logger.Logger
}

// New wires an importer. pub may be nil when event publishing is disabled.
func New(
	fetcher PageFetcher,
	cards store.CardStore,
	images ImageStore,
	download ImageDownloader,
	pub publisher.Publisher,
	sources []scraper.Source,
	delay time.Duration,
) *Importer {
	return &Importer{
		fetcher:  fetcher,
		cards:    cards,
		images:   images,
		download: download,
		pub:      pub,
		sources:  sources,
		delay:    delay,
		log:      logger.ForImporter(),
	}
}

// Sources returns the configured scrape sources
func (im *Importer) Sources() []scraper.Source {
	return im.sources
}

// SourceByName resolves a configured source by its name
func (im *Importer) SourceByName(name string) (scraper.Source, error) {
	for _, src := range im.sources {
		if src.Name() == strings.ToLower(strings.TrimSpace(name)) {
			return src, nil
		}
	}
	return nil, errs.NewValidation("", fmt.Sprintf("unknown source: %s", name))
}

// ScrapeCard fetches a detail page, extracts a card record and upserts it
func (im *Importer) ScrapeCard(ctx context.Context, src scraper.Source, pageURL string, forceUpdate bool) (*UpsertResult, error) {
	doc, err := im.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	raw := src.ExtractDetail(doc, pageURL)
	if raw == nil {
		return nil, errs.NewNotFound(src.Name(), fmt.Sprintf("no card found at %s", pageURL))
	}

	result, err := im.Upsert(ctx, src, raw, forceUpdate)
	if err != nil {
		return nil, err
	}

	im.log.Info().
		Str("slug", result.Card.Slug).
		Bool("created", result.Created).
		Strs("changed", result.Changed).
		Msg("card scraped")
	return result, nil
}

// ScrapeBySlug serves the by-slug flow. A stored card short-circuits without
// any network fetch unless forceUpdate is set; a missing card resolves
// through the source's search page first.
func (im *Importer) ScrapeBySlug(ctx context.Context, src scraper.Source, slug string, forceUpdate bool) (*UpsertResult, error) {
	slug = scraper.Slugify(slug)
	if slug == "" {
		return nil, errs.NewValidation(src.Name(), "slug is required")
	}

	existing, err := im.cards.GetBySlug(ctx, slug)
	if err != nil {
		return nil, errs.NewInternal(src.Name(), "slug lookup failed", err)
	}

	if existing != nil && !forceUpdate {
		return &UpsertResult{Card: existing}, nil
	}

	if existing != nil && existing.SourceURL != nil && *existing.SourceURL != "" {
		return im.ScrapeCard(ctx, src, *existing.SourceURL, true)
	}

	outcome, err := im.Search(ctx, src, strings.ReplaceAll(slug, "-", " "), 0)
	if err != nil {
		return nil, err
	}
	if outcome.Best == nil || outcome.Best.URL == "" {
		return nil, errs.NewNotFound(src.Name(), fmt.Sprintf("no card found for slug %s", slug))
	}
	return im.ScrapeCard(ctx, src, outcome.Best.URL, forceUpdate)
}

// SearchOutcome carries the ranked search-page results and the chosen match
type SearchOutcome struct {
	Best    *scraper.SearchResult  `json:"best,omitempty"`
	Score   float64                `json:"score"`
	Results []scraper.SearchResult `json:"results"`
}

// Search loads the source's search page for a query and ranks the extracted
// results against it. The below-threshold case still returns the first
// result; callers see the low score and decide for themselves.
func (im *Importer) Search(ctx context.Context, src scraper.Source, query string, limit int) (*SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.NewValidation(src.Name(), "query is required")
	}

	doc, err := im.fetcher.FetchPage(ctx, src.SearchURL(query))
	if err != nil {
		return nil, err
	}

	results := src.ExtractSearch(doc, src.SearchURL(query))
	if len(results) == 0 {
		return nil, errs.NewNotFound(src.Name(), fmt.Sprintf("no results for %q", query))
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	outcome := &SearchOutcome{Results: results}
	if best, score, ok := scraper.BestMatch(query, results); ok {
		outcome.Best = &best
		outcome.Score = score
	}
	return outcome, nil
}

// BulkResult accumulates per-item outcomes of a bulk import
type BulkResult struct {
	Total   int      `json:"total"`
	Scraped int      `json:"scraped"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// BulkImport walks a category page and imports each card sequentially. Items
// are isolated: one failure is counted and the loop moves on. A fixed delay
// separates consecutive detail-page fetches.
func (im *Importer) BulkImport(ctx context.Context, src scraper.Source, categoryURL string, limit int, skipExisting bool) (*BulkResult, error) {
	doc, err := im.fetcher.FetchListing(ctx, categoryURL)
	if err != nil {
		return nil, err
	}

	candidates := src.ExtractListing(doc, categoryURL)
	if len(candidates) == 0 {
		return nil, errs.NewNotFound(src.Name(), fmt.Sprintf("no cards found on %s", categoryURL))
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := &BulkResult{Total: len(candidates)}
	fetched := 0

	for _, cand := range candidates {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "import cancelled: "+ctx.Err().Error())
			break
		}

		slug := scraper.Slugify(cand.Name)
		if skipExisting {
			existing, err := im.cards.GetBySlug(ctx, slug)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: slug lookup failed: %v", slug, err))
				continue
			}
			if existing != nil {
				result.Skipped++
				continue
			}
		}

		raw := cand
		if cand.DetailURL != "" {
			if fetched > 0 && im.delay > 0 {
				select {
				case <-ctx.Done():
					result.Errors = append(result.Errors, "import cancelled: "+ctx.Err().Error())
					return result, nil
				case <-time.After(im.delay):
				}
			}
			fetched++

			detailDoc, err := im.fetcher.FetchPage(ctx, cand.DetailURL)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: detail fetch failed: %v", slug, err))
				continue
			}
			if detail := src.ExtractDetail(detailDoc, cand.DetailURL); detail != nil {
				if detail.ImageURL == "" {
					detail.ImageURL = cand.ImageURL
				}
				raw = detail
			}
		}

		if _, err := im.Upsert(ctx, src, raw, true); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", slug, err))
			continue
		}
		result.Scraped++
	}

	im.log.Info().
		Str("source", src.Name()).
		Str("category", categoryURL).
		Int("scraped", result.Scraped).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("bulk import finished")
	return result, nil
}

// CategoryImport is one category's slice of an ImportAll run
type CategoryImport struct {
	Category string      `json:"category"`
	URL      string      `json:"url"`
	Result   *BulkResult `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// ImportAllResult aggregates per-category results and totals
type ImportAllResult struct {
	Categories []CategoryImport `json:"categories"`
	Totals     BulkResult       `json:"totals"`
}

// ImportAll runs a skip-existing bulk import over every category the source
// publishes. Categories are isolated the same way items are.
func (im *Importer) ImportAll(ctx context.Context, src scraper.Source, perCategoryLimit int) (*ImportAllResult, error) {
	categories := src.Categories()
	if len(categories) == 0 {
		return nil, errs.NewNotFound(src.Name(), "source has no categories")
	}

	out := &ImportAllResult{}
	for _, cat := range categories {
		if ctx.Err() != nil {
			out.Categories = append(out.Categories, CategoryImport{
				Category: cat.Name,
				URL:      cat.URL,
				Error:    "import cancelled: " + ctx.Err().Error(),
			})
			break
		}

		entry := CategoryImport{Category: cat.Name, URL: cat.URL}
		result, err := im.BulkImport(ctx, src, cat.URL, perCategoryLimit, true)
		if err != nil {
			entry.Error = err.Error()
			im.log.Warn().Err(err).Str("category", cat.Name).Msg("category import failed")
		} else {
			entry.Result = result
			out.Totals.Total += result.Total
			out.Totals.Scraped += result.Scraped
			out.Totals.Skipped += result.Skipped
			out.Totals.Failed += result.Failed
			out.Totals.Errors = append(out.Totals.Errors, result.Errors...)
		}
		out.Categories = append(out.Categories, entry)
	}

	return out, nil
}

// RefreshByID re-scrapes a stored card from its recorded source URL
func (im *Importer) RefreshByID(ctx context.Context, id string) (*UpsertResult, error) {
	card, err := im.cards.GetByID(ctx, id)
	if err != nil {
		return nil, errs.NewInternal("", "card lookup failed", err)
	}
	if card == nil {
		return nil, errs.NewNotFound("", fmt.Sprintf("card not found: %s", id))
	}
	if card.SourceURL == nil || *card.SourceURL == "" {
		return nil, errs.NewValidation("", fmt.Sprintf("card %s has no source URL to refresh from", card.Slug))
	}

	src, err := scraper.ValidateSourceURL(*card.SourceURL, im.sources)
	if err != nil {
		return nil, err
	}
	return im.ScrapeCard(ctx, src, *card.SourceURL, true)
}
