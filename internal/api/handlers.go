package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cardscout/cardworker/internal/importer"
	"cardscout/cardworker/internal/scraper"
	"cardscout/cardworker/logger"
	errs "cardscout/cardworker/pkg/errors"
	"cardscout/cardworker/services/images"
	"cardscout/cardworker/services/store"

	"github.com/go-chi/chi"
)

// Handler carries the dependencies behind every route
type Handler struct {
	importer     *importer.Importer
	cards        store.CardStore
	images       images.Store
	bulkLimitMax int
	log          *logger.Logger
}

// NewHandler wires the route handlers
func NewHandler(imp *importer.Importer, cards store.CardStore, imgStore images.Store, bulkLimitMax int) *Handler {
	if bulkLimitMax <= 0 {
		bulkLimitMax = 50
	}
	return &Handler{
		importer:     imp,
		cards:        cards,
		images:       imgStore,
		bulkLimitMax: bulkLimitMax,
		log:          logger.ForAPI(),
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	count, err := h.cards.Count(r.Context())
	status := map[string]interface{}{"status": "ok"}
	if err != nil {
		status["status"] = "degraded"
		status["storage"] = err.Error()
	} else {
		status["cards"] = count
	}
	writeData(w, http.StatusOK, status)
}

// serveImage streams stored card art with a long-lived cache header. Stored
// images are content-addressed by source URL hash, so they never change in
// place.
func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || strings.Contains(filename, "/") {
		writeErrorKind(w, errs.KindValidation, "invalid image filename")
		return
	}

	var buf bytes.Buffer
	contentType, err := h.images.Serve(r.Context(), filename, &buf)
	if err != nil {
		if errors.Is(err, images.ErrNotFound) {
			writeErrorKind(w, errs.KindNotFound, "image not found")
			return
		}
		h.log.Error().Err(err).Str("filename", filename).Msg("image serve failed")
		writeErrorKind(w, errs.KindInternal, "failed to load image")
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// searchSource handles GET /scrape/search?q=&source=&limit=
func (h *Handler) searchSource(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeErrorKind(w, errs.KindValidation, "query parameter q is required")
		return
	}

	src, err := h.sourceFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := intQuery(r, "limit", 10)
	outcome, err := h.importer.Search(r.Context(), src, query, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, outcome)
}

type scrapeCardRequest struct {
	URL         string `json:"url"`
	ForceUpdate bool   `json:"forceUpdate"`
}

// scrapeCard handles POST /scrape/card and the per-source variants. The
// request URL must belong to a supported source; per-source routes must also
// match that route's source.
func (h *Handler) scrapeCard(requiredSource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeCardRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeErrorKind(w, errs.KindValidation, "url is required")
			return
		}

		src, err := scraper.ValidateSourceURL(req.URL, h.importer.Sources())
		if err != nil {
			writeError(w, err)
			return
		}
		if requiredSource != "" && src.Name() != requiredSource {
			writeErrorKind(w, errs.KindValidation,
				fmt.Sprintf("url does not belong to %s", requiredSource))
			return
		}

		result, err := h.importer.ScrapeCard(r.Context(), src, req.URL, req.ForceUpdate)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, statusForUpsert(result), result)
	}
}

// scrapeBySlug handles GET /scrape/card/{slug}?forceUpdate=&source=
func (h *Handler) scrapeBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeErrorKind(w, errs.KindValidation, "slug is required")
		return
	}

	src, err := h.sourceFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	force := boolQuery(r, "forceUpdate")
	result, err := h.importer.ScrapeBySlug(r.Context(), src, slug, force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, statusForUpsert(result), result)
}

type bulkRequest struct {
	CategoryURL  string `json:"categoryUrl"`
	Limit        int    `json:"limit"`
	SkipExisting *bool  `json:"skipExisting"`
}

// bulkImport handles POST /scrape/bulk and the per-source variants
func (h *Handler) bulkImport(requiredSource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if strings.TrimSpace(req.CategoryURL) == "" {
			writeErrorKind(w, errs.KindValidation, "categoryUrl is required")
			return
		}

		src, err := scraper.ValidateSourceURL(req.CategoryURL, h.importer.Sources())
		if err != nil {
			writeError(w, err)
			return
		}
		if requiredSource != "" && src.Name() != requiredSource {
			writeErrorKind(w, errs.KindValidation,
				fmt.Sprintf("categoryUrl does not belong to %s", requiredSource))
			return
		}

		limit := req.Limit
		if limit <= 0 || limit > h.bulkLimitMax {
			limit = h.bulkLimitMax
		}
		skipExisting := true
		if req.SkipExisting != nil {
			skipExisting = *req.SkipExisting
		}

		result, err := h.importer.BulkImport(r.Context(), src, req.CategoryURL, limit, skipExisting)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}

// refreshCard handles POST /scrape/update/{cardId}
func (h *Handler) refreshCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cardId")
	if id == "" {
		writeErrorKind(w, errs.KindValidation, "cardId is required")
		return
	}

	result, err := h.importer.RefreshByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

// listCategories handles GET /scrape/{source}/categories
func (h *Handler) listCategories(sourceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := h.importer.SourceByName(sourceName)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, src.Categories())
	}
}

type importAllRequest struct {
	Limit int `json:"limit"`
}

// importAll handles POST /scrape/{source}/import-all
func (h *Handler) importAll(sourceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importAllRequest
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, err)
				return
			}
		}

		src, err := h.importer.SourceByName(sourceName)
		if err != nil {
			writeError(w, err)
			return
		}

		limit := req.Limit
		if limit <= 0 || limit > h.bulkLimitMax {
			limit = h.bulkLimitMax
		}

		result, err := h.importer.ImportAll(r.Context(), src, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}

// getCard handles GET /cards/{slug}: store read only, no scraping
func (h *Handler) getCard(w http.ResponseWriter, r *http.Request) {
	slug := scraper.Slugify(chi.URLParam(r, "slug"))
	if slug == "" {
		writeErrorKind(w, errs.KindValidation, "slug is required")
		return
	}

	card, err := h.cards.GetBySlug(r.Context(), slug)
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("card lookup failed")
		writeErrorKind(w, errs.KindInternal, "card lookup failed")
		return
	}
	if card == nil {
		writeErrorKind(w, errs.KindNotFound, "card not found: "+slug)
		return
	}
	writeData(w, http.StatusOK, card)
}

// listCards handles GET /cards?q=&limit=: a token search over the stored
// search-term index
func (h *Handler) listCards(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeErrorKind(w, errs.KindValidation, "query parameter q is required")
		return
	}

	tokens := scraper.QueryTokens(query)
	if len(tokens) == 0 {
		writeErrorKind(w, errs.KindValidation, "query has no searchable terms")
		return
	}

	limit := intQuery(r, "limit", 20)
	cards, err := h.cards.SearchByTerms(r.Context(), tokens, limit)
	if err != nil {
		h.log.Error().Err(err).Str("q", query).Msg("card search failed")
		writeErrorKind(w, errs.KindInternal, "card search failed")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
		"count": len(cards),
	})
}

// sourceFromRequest resolves the optional source query parameter, defaulting
// to the first configured source
func (h *Handler) sourceFromRequest(r *http.Request) (scraper.Source, error) {
	name := strings.TrimSpace(r.URL.Query().Get("source"))
	if name == "" {
		sources := h.importer.Sources()
		if len(sources) == 0 {
			return nil, errs.NewInternal("", "no scrape sources configured", nil)
		}
		return sources[0], nil
	}
	return h.importer.SourceByName(name)
}

func statusForUpsert(result *importer.UpsertResult) int {
	if result.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func boolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
