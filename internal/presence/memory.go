package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	displayName string
	expiresAt   time.Time
}

// MemoryStore is an in-process presence store with the same TTL semantics as
// the Redis store. Expiry is enforced lazily on read, so there is no
// background sweeper to leak. Intended for single-instance deployments and
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory presence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Register creates or overwrites the entry for a connection.
func (s *MemoryStore) Register(_ context.Context, connID, displayName string, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[connID] = memoryEntry{
		displayName: displayName,
		expiresAt:   s.now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

// Refresh extends the expiry of a live entry. An absent or already expired
// entry is left alone so a late heartbeat cannot resurrect it.
func (s *MemoryStore) Refresh(_ context.Context, connID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[connID]
	if !ok {
		return nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, connID)
		return nil
	}
	entry.expiresAt = s.now().Add(ttl)
	s.entries[connID] = entry
	return nil
}

// Deregister removes the entry unconditionally.
func (s *MemoryStore) Deregister(_ context.Context, connID string) error {
	s.mu.Lock()
	delete(s.entries, connID)
	s.mu.Unlock()
	return nil
}

// ListDistinctNames returns the deduplicated, sorted display names of all
// non-expired entries.
func (s *MemoryStore) ListDistinctNames(_ context.Context) ([]string, error) {
	now := s.now()

	s.mu.RLock()
	seen := make(map[string]bool, len(s.entries))
	names := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		if now.After(entry.expiresAt) {
			continue
		}
		if !seen[entry.displayName] {
			seen[entry.displayName] = true
			names = append(names, entry.displayName)
		}
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names, nil
}
