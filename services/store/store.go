package store

import "context"

// CardStore is the narrow query surface the pipeline issues against the
// document store. Implementations return (nil, nil) when a lookup misses.
type CardStore interface {
	// GetBySlug finds a card by its slug, exact match only
	GetBySlug(ctx context.Context, slug string) (*Card, error)

	// GetByID finds a card by its opaque ID
	GetByID(ctx context.Context, id string) (*Card, error)

	// Create persists a new card
	Create(ctx context.Context, card *Card) error

	// Update replaces the stored card identified by card.ID
	Update(ctx context.Context, card *Card) error

	// SearchByTerms returns cards whose search-term index intersects the
	// given tokens. At most 10 tokens are consulted.
	SearchByTerms(ctx context.Context, tokens []string, limit int) ([]Card, error)

	// Count returns the number of persisted cards
	Count(ctx context.Context) (int64, error)
}

// APIKeyStore manages API key records keyed by hash
type APIKeyStore interface {
	// FindByHash finds an API key by its SHA-256 hex digest
	FindByHash(ctx context.Context, hash string) (*APIKey, error)

	// Create persists a new API key record
	Create(ctx context.Context, key *APIKey) error

	// TouchUsage bumps usageCount and lastUsedAt for a key. Callers treat
	// this as best-effort and must not block on it.
	TouchUsage(ctx context.Context, hash string) error
}
