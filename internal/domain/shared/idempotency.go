package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a processed key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers processed keys so a repeated request is not
// applied twice
type IdempotencyStore interface {
	// MarkProcessed records the key for ttl. It returns true when the key was
	// newly recorded and false when it had already been processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the key is recorded and not yet expired
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases the store's resources
	Close() error
}
