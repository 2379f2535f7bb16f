package cache

import (
	"time"
)

// CacheService represents a generic cache service. The scraper uses it as a
// courtesy throttle: a source host is blocked for a window after a fetch
// failure or rate-limit response.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// IsBlocked reports whether a throttle key is currently set. A nil cache
// never blocks.
func IsBlocked(svc CacheService, key string) bool {
	if svc == nil || key == "" {
		return false
	}
	_, err := svc.Get(key)
	return err == nil
}

// Block sets a throttle key for the given window. Errors are returned so the
// caller can log them; a failed block never fails the fetch itself.
func Block(svc CacheService, key string, window time.Duration) error {
	if svc == nil || key == "" {
		return nil
	}
	return svc.Set(key, []byte(window.String()), window)
}
