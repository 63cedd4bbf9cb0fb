package message

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is the number of recent messages the in-memory store
// retains before overwriting the oldest.
const DefaultMemoryCapacity = 500

// MemoryStore keeps the last N messages in a fixed-size ring buffer. It is
// goroutine-safe and used for tests and single-instance deployments where no
// PostgreSQL is available.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Message
	pos   int
	count int
}

// NewMemoryStore creates an empty in-memory store with the given capacity.
// A capacity of zero or less falls back to DefaultMemoryCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{items: make([]Message, capacity)}
}

// Append records a message, overwriting the oldest entry when full.
func (s *MemoryStore) Append(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[s.pos] = msg
	s.pos = (s.pos + 1) % len(s.items)
	if s.count < len(s.items) {
		s.count++
	}
	return nil
}

// Recent returns up to n messages in chronological order, oldest first.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.count {
		n = s.count
	}
	if n <= 0 {
		return []Message{}, nil
	}

	result := make([]Message, n)
	// The oldest of the last n messages sits n slots behind the write position.
	start := (s.pos - n + len(s.items)) % len(s.items)
	for i := 0; i < n; i++ {
		result[i] = s.items[(start+i)%len(s.items)]
	}
	return result, nil
}

// Len returns the number of messages currently retained.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
