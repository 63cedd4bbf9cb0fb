package presence

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically instead of sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := NewMemoryStore()
	s.now = clock.now
	return s, clock
}

func mustRoster(t *testing.T, s Store) []string {
	t.Helper()
	names, err := s.ListDistinctNames(context.Background())
	if err != nil {
		t.Fatalf("list distinct names: %v", err)
	}
	return names
}

func TestRegisterAndList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	if err := s.Register(ctx, "conn-1", "alice", time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register(ctx, "conn-2", "bob", time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}

	names := mustRoster(t, s)
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d: %v", len(names), names)
	}
	if names[0] != "alice" || names[1] != "bob" {
		t.Errorf("expected sorted [alice bob], got %v", names)
	}
}

func TestMultipleConnectionsOneRosterEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	// One user with K simultaneous connections appears exactly once.
	const k = 4
	for i := 0; i < k; i++ {
		if err := s.Register(ctx, fmt.Sprintf("conn-%d", i), "alice", time.Hour); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	names := mustRoster(t, s)
	if len(names) != 1 || names[0] != "alice" {
		t.Fatalf("expected [alice], got %v", names)
	}

	// Drop all but the last connection: still present.
	for i := 0; i < k-1; i++ {
		if err := s.Deregister(ctx, fmt.Sprintf("conn-%d", i)); err != nil {
			t.Fatalf("deregister: %v", err)
		}
		names = mustRoster(t, s)
		if len(names) != 1 || names[0] != "alice" {
			t.Fatalf("after %d deregisters expected [alice], got %v", i+1, names)
		}
	}

	// Drop the last one: gone.
	if err := s.Deregister(ctx, fmt.Sprintf("conn-%d", k-1)); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	if names = mustRoster(t, s); len(names) != 0 {
		t.Fatalf("expected empty roster, got %v", names)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	_ = s.Register(ctx, "conn-1", "alice", time.Hour)
	_ = s.Register(ctx, "conn-1", "alice", time.Hour)

	if names := mustRoster(t, s); len(names) != 1 {
		t.Fatalf("expected 1 name, got %v", names)
	}
}

func TestEntryExpires(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	_ = s.Register(ctx, "conn-1", "alice", time.Hour)

	clock.advance(30 * time.Minute)
	if names := mustRoster(t, s); len(names) != 1 {
		t.Fatalf("entry expired too early: %v", names)
	}

	clock.advance(31 * time.Minute)
	if names := mustRoster(t, s); len(names) != 0 {
		t.Fatalf("expected expired entry to be gone, got %v", names)
	}
}

func TestRefreshExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	// Refresh every 30m against a 1h TTL; the entry never expires while the
	// heartbeat keeps firing.
	_ = s.Register(ctx, "conn-1", "alice", time.Hour)
	for i := 0; i < 5; i++ {
		clock.advance(30 * time.Minute)
		if err := s.Refresh(ctx, "conn-1", time.Hour); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if names := mustRoster(t, s); len(names) != 1 {
			t.Fatalf("iteration %d: entry expired despite refresh: %v", i, names)
		}
	}

	// Heartbeat stops: the entry expires within one TTL of the last refresh.
	clock.advance(time.Hour + time.Minute)
	if names := mustRoster(t, s); len(names) != 0 {
		t.Fatalf("expected entry to expire after heartbeat stopped, got %v", names)
	}
}

func TestRefreshDoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	_ = s.Register(ctx, "conn-1", "alice", time.Hour)
	clock.advance(2 * time.Hour)

	// A late heartbeat for an expired entry is a no-op, not an error.
	if err := s.Refresh(ctx, "conn-1", time.Hour); err != nil {
		t.Fatalf("refresh after expiry: %v", err)
	}
	if names := mustRoster(t, s); len(names) != 0 {
		t.Fatalf("late refresh resurrected the entry: %v", names)
	}
}

func TestRefreshAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore()

	if err := s.Refresh(context.Background(), "never-registered", time.Hour); err != nil {
		t.Fatalf("refresh of absent entry should be a no-op, got %v", err)
	}
	if names := mustRoster(t, s); len(names) != 0 {
		t.Fatalf("expected empty roster, got %v", names)
	}
}

func TestDeregisterAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore()

	if err := s.Deregister(context.Background(), "never-registered"); err != nil {
		t.Fatalf("deregister of absent entry should not error, got %v", err)
	}
}
