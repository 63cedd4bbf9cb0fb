package gateway

import (
	"fmt"
	"testing"
)

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()

	c := &Client{ID: "conn-1"}
	r.Add(c)

	if r.Len() != 1 {
		t.Fatalf("expected 1 client, got %d", r.Len())
	}
	if got := r.Get("conn-1"); got != c {
		t.Fatalf("expected to get the added client back, got %v", got)
	}

	if !r.Remove("conn-1") {
		t.Fatal("expected Remove to report the client was present")
	}
	if r.Remove("conn-1") {
		t.Fatal("expected second Remove to report absent")
	}
	if r.Get("conn-1") != nil {
		t.Fatal("expected nil after removal")
	}
}

func TestRegistryForEach(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Add(&Client{ID: fmt.Sprintf("conn-%d", i)})
	}

	seen := make(map[string]bool)
	r.ForEach(func(c *Client) {
		seen[c.ID] = true
	})

	if len(seen) != 5 {
		t.Fatalf("expected to visit 5 clients, visited %d", len(seen))
	}
}

func TestRegistryForEachAllowsRemoval(t *testing.T) {
	r := NewRegistry()
	r.Add(&Client{ID: "conn-1"})
	r.Add(&Client{ID: "conn-2"})

	// Removing during iteration must not deadlock.
	r.ForEach(func(c *Client) {
		r.Remove(c.ID)
	})

	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}
