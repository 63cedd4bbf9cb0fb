// Package presence tracks which connections are online across the whole
// fleet. Each live connection owns a single TTL-expired entry keyed by its
// connection ID; the "who is online" roster is derived by projecting the
// distinct display names over the non-expired entries. Keying per connection
// (rather than one slot per user) means a user with several simultaneous
// connections stays in the roster until the last one is gone.
package presence

import (
	"context"
	"time"
)

// DefaultTTL is the presence entry lifetime. A connection that stops
// refreshing (crashed client, dead instance) disappears from the roster
// within this bound without any explicit cleanup.
const DefaultTTL = 1 * time.Hour

// Store is the shared presence state.
type Store interface {
	// Register creates or overwrites the entry for a connection. Idempotent.
	Register(ctx context.Context, connID, displayName string, ttl time.Duration) error
	// Refresh extends the entry's expiry. A refresh for an absent or already
	// expired entry is a no-op, not an error: a late heartbeat must never
	// resurrect a dead connection.
	Refresh(ctx context.Context, connID string, ttl time.Duration) error
	// Deregister removes the entry unconditionally.
	Deregister(ctx context.Context, connID string) error
	// ListDistinctNames returns the deduplicated, sorted display names of all
	// live entries. The view is best-effort: entries expiring concurrently
	// with the scan may or may not appear.
	ListDistinctNames(ctx context.Context) ([]string, error)
}
