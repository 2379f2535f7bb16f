package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"cardscout/cardworker/logger"
	errs "cardscout/cardworker/pkg/errors"
	"cardscout/cardworker/services/store"

	"github.com/go-chi/httprate"
)

type contextKey string

const apiKeyContextKey contextKey = "apiKey"

const (
	apiKeyHeader     = "X-API-Key"
	defaultRateLimit = 60
	rateWindow       = time.Minute
	touchTimeout     = 5 * time.Second
)

// keyFromContext returns the authenticated API key record, if any
func keyFromContext(ctx context.Context) *store.APIKey {
	key, _ := ctx.Value(apiKeyContextKey).(*store.APIKey)
	return key
}

// HashKey returns the SHA-256 hex digest of a raw API key. The digest is the
// key record's document ID; the raw key is never stored or logged.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// auth validates the X-API-Key header against the key store. Usage counters
// are bumped asynchronously so a slow store write never delays the request.
type auth struct {
	keys store.APIKeyStore
	log  *logger.Logger
}

func newAuth(keys store.APIKeyStore) *auth {
	return &auth{keys: keys, log: logger.ForAPI()}
}

func (a *auth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(apiKeyHeader)
		if raw == "" {
			writeErrorKind(w, errs.KindAuth, "missing API key")
			return
		}

		hash := HashKey(raw)
		key, err := a.keys.FindByHash(r.Context(), hash)
		if err != nil {
			a.log.Error().Err(err).Msg("API key lookup failed")
			writeErrorKind(w, errs.KindInternal, "authentication unavailable")
			return
		}
		if key == nil || !key.Active {
			writeErrorKind(w, errs.KindAuth, "invalid API key")
			return
		}

		go a.touch(hash)

		ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *auth) touch(hash string) {
	ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
	defer cancel()
	if err := a.keys.TouchUsage(ctx, hash); err != nil {
		a.log.Debug().Err(err).Msg("failed to record API key usage")
	}
}

// keyRateLimiter enforces each key's per-minute request budget. One httprate
// limiter is pooled per budget value; counting inside a limiter is keyed by
// the key hash, so keys sharing a budget still count separately.
type keyRateLimiter struct {
	mu       sync.Mutex
	wrappers map[int]func(http.Handler) http.Handler
}

func newKeyRateLimiter() *keyRateLimiter {
	return &keyRateLimiter{wrappers: make(map[int]func(http.Handler) http.Handler)}
}

func (rl *keyRateLimiter) wrapperFor(limit int) func(http.Handler) http.Handler {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	mw, ok := rl.wrappers[limit]
	if !ok {
		mw = httprate.Limit(limit, rateWindow,
			httprate.WithKeyFuncs(keyHashFromRequest),
			httprate.WithLimitHandler(limitExceeded),
		)
		rl.wrappers[limit] = mw
	}
	return mw
}

func (rl *keyRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyFromContext(r.Context())
		if key == nil {
			writeErrorKind(w, errs.KindAuth, "missing API key")
			return
		}

		limit := key.RateLimit
		if limit <= 0 {
			limit = defaultRateLimit
		}

		rl.wrapperFor(limit)(next).ServeHTTP(w, r)
	})
}

func keyHashFromRequest(r *http.Request) (string, error) {
	if key := keyFromContext(r.Context()); key != nil {
		return key.HashedID, nil
	}
	return "", nil
}

func limitExceeded(w http.ResponseWriter, _ *http.Request) {
	writeErrorKind(w, errs.KindRateLimited, "rate limit exceeded, retry later")
}

// requestLogger logs one line per request with method, path, status and
// duration
func requestLogger(next http.Handler) http.Handler {
	log := logger.ForAPI()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
