package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cardscout/cardworker/internal/importer"
	"cardscout/cardworker/internal/scraper"
	"cardscout/cardworker/services/images"
	"cardscout/cardworker/services/store"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
)

// stubSource mirrors the importer test stub: canned extraction results
type stubSource struct {
	detail map[string]*scraper.RawCard
	search []scraper.SearchResult
}

func (s *stubSource) Name() string              { return "stub" }
func (s *stubSource) Matches(host string) bool  { return host == "stub.test" }
func (s *stubSource) SearchURL(q string) string { return "https://stub.test/search?q=" + q }

func (s *stubSource) Locale() scraper.Locale {
	return scraper.Locale{Country: "United States", CountryCode: "US", Currency: "USD", CurrencySymbol: "$"}
}

func (s *stubSource) Categories() []scraper.Category {
	return []scraper.Category{{Name: "Cash Back", URL: "https://stub.test/cash-back"}}
}

func (s *stubSource) ExtractDetail(_ *goquery.Document, pageURL string) *scraper.RawCard {
	if raw, ok := s.detail[pageURL]; ok {
		clone := *raw
		return &clone
	}
	return nil
}

func (s *stubSource) ExtractListing(_ *goquery.Document, _ string) []*scraper.RawCard { return nil }
func (s *stubSource) ExtractSearch(_ *goquery.Document, _ string) []scraper.SearchResult {
	return s.search
}

type stubFetcher struct{}

func (stubFetcher) FetchPage(_ context.Context, _ string) (*goquery.Document, error) {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	return doc, nil
}

func (f stubFetcher) FetchListing(ctx context.Context, u string) (*goquery.Document, error) {
	return f.FetchPage(ctx, u)
}

type memCardStore struct {
	mu     sync.Mutex
	bySlug map[string]*store.Card
	byID   map[string]*store.Card
}

func newMemCardStore() *memCardStore {
	return &memCardStore{bySlug: make(map[string]*store.Card), byID: make(map[string]*store.Card)}
}

func (s *memCardStore) GetBySlug(_ context.Context, slug string) (*store.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card, ok := s.bySlug[slug]; ok {
		clone := *card
		return &clone, nil
	}
	return nil, nil
}

func (s *memCardStore) GetByID(_ context.Context, id string) (*store.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card, ok := s.byID[id]; ok {
		clone := *card
		return &clone, nil
	}
	return nil, nil
}

func (s *memCardStore) Create(_ context.Context, card *store.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *card
	s.bySlug[card.Slug] = &clone
	s.byID[card.ID] = &clone
	return nil
}

func (s *memCardStore) Update(_ context.Context, card *store.Card) error {
	return s.Create(context.Background(), card)
}

func (s *memCardStore) SearchByTerms(_ context.Context, tokens []string, _ int) ([]store.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Card
	for _, card := range s.bySlug {
		for _, term := range card.SearchTerms {
			matched := false
			for _, tok := range tokens {
				if tok == term {
					out = append(out, *card)
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}
	return out, nil
}

func (s *memCardStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.bySlug)), nil
}

type memKeyStore struct {
	mu   sync.Mutex
	keys map[string]*store.APIKey
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{keys: make(map[string]*store.APIKey)}
}

func (s *memKeyStore) FindByHash(_ context.Context, hash string) (*store.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[hash]; ok {
		clone := *key
		return &clone, nil
	}
	return nil, nil
}

func (s *memKeyStore) Create(_ context.Context, key *store.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.HashedID] = key
	return nil
}

func (s *memKeyStore) TouchUsage(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[hash]; ok {
		key.UsageCount++
	}
	return nil
}

type memImageStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemImageStore() *memImageStore {
	return &memImageStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memImageStore) Upload(_ context.Context, data []byte, path, contentType string) (string, error) {
	s.objects[path] = data
	s.types[path] = contentType
	return "https://api.test/images/" + path, nil
}

func (s *memImageStore) Delete(_ context.Context, _ string) (bool, error) { return false, nil }
func (s *memImageStore) Exists(_ context.Context, _ string) (bool, error) { return false, nil }

func (s *memImageStore) Serve(_ context.Context, filename string, w io.Writer) (string, error) {
	data, ok := s.objects[filename]
	if !ok {
		return "", images.ErrNotFound
	}
	_, _ = w.Write(data)
	return s.types[filename], nil
}

type stubDownloader struct{}

func (stubDownloader) Download(_ context.Context, _ string) ([]byte, string, error) {
	return []byte{0x89, 0x50}, "image/png", nil
}

type testEnv struct {
	ts     *httptest.Server
	cards  *memCardStore
	keys   *memKeyStore
	imgs   *memImageStore
	src    *stubSource
	rawKey string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	src := &stubSource{detail: make(map[string]*scraper.RawCard)}
	cards := newMemCardStore()
	keys := newMemKeyStore()
	imgs := newMemImageStore()

	imp := importer.New(stubFetcher{}, cards, imgs, stubDownloader{}, nil,
		[]scraper.Source{src}, 0)
	handler := NewHandler(imp, cards, imgs, 50)
	server := NewServer(":0", handler, keys)

	rawKey := "test-key-123"
	_ = keys.Create(context.Background(), &store.APIKey{
		HashedID:  HashKey(rawKey),
		Name:      "test",
		RateLimit: 100,
		Active:    true,
		CreatedAt: time.Now(),
	})

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, cards: cards, keys: keys, imgs: imgs, src: src, rawKey: rawKey}
}

func (e *testEnv) request(t *testing.T, method, path, key string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reqBody)
	assert.NoError(t, err)
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestHealthIsPublic(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.False(t, env.Timestamp.IsZero())
}

func TestAuthRejectsMissingKey(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.request(t, http.MethodGet, "/v1/cards/some-card", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "AUTH_ERROR", env.Code)
}

func TestAuthRejectsUnknownKey(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.request(t, http.MethodGet, "/v1/cards/some-card", "wrong-key", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_ERROR", env.Code)
}

func TestAuthRejectsInactiveKey(t *testing.T) {
	e := newTestEnv(t)
	raw := "revoked-key"
	_ = e.keys.Create(context.Background(), &store.APIKey{
		HashedID: HashKey(raw),
		Active:   false,
	})

	resp, _ := e.request(t, http.MethodGet, "/v1/cards/some-card", raw, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetCardNotFound(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.request(t, http.MethodGet, "/v1/cards/missing-card", e.rawKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestGetCardFound(t *testing.T) {
	e := newTestEnv(t)
	_ = e.cards.Create(context.Background(), &store.Card{
		ID:   "id-1",
		Slug: "stub-cash-rewards-card",
		Name: "Stub Cash Rewards Card",
	})

	resp, env := e.request(t, http.MethodGet, "/v1/cards/stub-cash-rewards-card", e.rawKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	data, _ := json.Marshal(env.Data)
	var card store.Card
	assert.NoError(t, json.Unmarshal(data, &card))
	assert.Equal(t, "Stub Cash Rewards Card", card.Name)
}

func TestScrapeCardCreates(t *testing.T) {
	e := newTestEnv(t)
	e.src.detail["https://stub.test/cards/good"] = &scraper.RawCard{
		Name:          "Stub Cash Rewards Card",
		AnnualFeeText: "$95",
		SourceURL:     "https://stub.test/cards/good",
	}

	resp, env := e.request(t, http.MethodPost, "/v1/scrape/card", e.rawKey,
		map[string]interface{}{"url": "https://stub.test/cards/good"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	stored, err := e.cards.GetBySlug(context.Background(), "stub-cash-rewards-card")
	assert.NoError(t, err)
	if assert.NotNil(t, stored) {
		assert.Equal(t, 95, stored.AnnualFee)
	}
}

func TestScrapeCardRejectsUnknownDomain(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.request(t, http.MethodPost, "/v1/scrape/card", e.rawKey,
		map[string]interface{}{"url": "https://evil.example.com/cards/x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestScrapeCardRejectsMissingURL(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.request(t, http.MethodPost, "/v1/scrape/card", e.rawKey,
		map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSourceRouteRejectsForeignURL(t *testing.T) {
	e := newTestEnv(t)

	// stub.test is a valid source but not the one this route serves
	resp, env := e.request(t, http.MethodPost, "/v1/scrape/ratehub/card", e.rawKey,
		map[string]interface{}{"url": "https://stub.test/cards/good"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.request(t, http.MethodGet, "/v1/scrape/search", e.rawKey, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchReturnsRankedResults(t *testing.T) {
	e := newTestEnv(t)
	e.src.search = []scraper.SearchResult{
		{Name: "Stub Travel Card", URL: "https://stub.test/cards/travel"},
		{Name: "Stub Cash Rewards Card", URL: "https://stub.test/cards/cash"},
	}

	resp, env := e.request(t, http.MethodGet,
		"/v1/scrape/search?q=stub+cash+rewards+card", e.rawKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	data, _ := json.Marshal(env.Data)
	var outcome importer.SearchOutcome
	assert.NoError(t, json.Unmarshal(data, &outcome))
	if assert.NotNil(t, outcome.Best) {
		assert.Equal(t, "Stub Cash Rewards Card", outcome.Best.Name)
	}
}

func TestListCardsSearchesTermIndex(t *testing.T) {
	e := newTestEnv(t)
	_ = e.cards.Create(context.Background(), &store.Card{
		ID:          "id-1",
		Slug:        "stub-cash-rewards-card",
		Name:        "Stub Cash Rewards Card",
		SearchTerms: []string{"stub", "cash", "rewards", "card"},
	})

	resp, env := e.request(t, http.MethodGet, "/v1/cards?q=cash+rewards", e.rawKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestRateLimitPerKey(t *testing.T) {
	e := newTestEnv(t)
	raw := "tight-budget-key"
	_ = e.keys.Create(context.Background(), &store.APIKey{
		HashedID:  HashKey(raw),
		RateLimit: 2,
		Active:    true,
	})

	for i := 0; i < 2; i++ {
		resp, _ := e.request(t, http.MethodGet, "/v1/cards/missing", raw, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	resp, env := e.request(t, http.MethodGet, "/v1/cards/missing", raw, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", env.Code)
}

func TestServeImage(t *testing.T) {
	e := newTestEnv(t)
	e.imgs.objects["card-abc.png"] = []byte{0x89, 0x50, 0x4e, 0x47}
	e.imgs.types["card-abc.png"] = "image/png"

	resp, err := http.Get(e.ts.URL + "/images/card-abc.png")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Cache-Control"), "max-age=31536000")

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, body)
}

func TestServeImageNotFound(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.request(t, http.MethodGet, "/images/nope.png", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestHashKeyIsStable(t *testing.T) {
	assert.Equal(t, HashKey("abc"), HashKey("abc"))
	assert.NotEqual(t, HashKey("abc"), HashKey("abd"))
	assert.Len(t, HashKey("abc"), 64)
}
