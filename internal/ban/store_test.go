package ban

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestStore connects to a local Redis instance and clears test keys.
// Tests are skipped when no Redis is reachable on localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	cleanup := func() {
		for _, pattern := range []string{BanPrefix + "test_*", OffensesPrefix + "test_*"} {
			iter := client.Scan(ctx, 0, pattern, 100).Iterator()
			for iter.Next(ctx) {
				client.Del(ctx, iter.Val())
			}
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewStore(client)
}

func TestIsBannedNotBanned(t *testing.T) {
	store := newTestStore(t)

	banned, _, _, err := store.IsBanned(context.Background(), "test_no_ban")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if banned {
		t.Error("expected not banned")
	}
}

func TestBanAndCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ban(ctx, "test_ban_check", 30*time.Second, "spam"); err != nil {
		t.Fatalf("Ban: %v", err)
	}

	banned, remaining, reason, err := store.IsBanned(ctx, "test_ban_check")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if !banned {
		t.Fatal("expected banned")
	}
	if reason != "spam" {
		t.Errorf("reason = %q, want %q", reason, "spam")
	}
	if remaining <= 0 || remaining > 30*time.Second {
		t.Errorf("remaining = %v, want in (0, 30s]", remaining)
	}
}

func TestUnban(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ban(ctx, "test_unban", time.Minute, "test"); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if err := store.Unban(ctx, "test_unban"); err != nil {
		t.Fatalf("Unban: %v", err)
	}

	banned, _, _, err := store.IsBanned(ctx, "test_unban")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if banned {
		t.Error("expected not banned after Unban")
	}
}

func TestEscalationDuration(t *testing.T) {
	cases := []struct {
		count    int
		expected time.Duration
	}{
		{3, Ban15Min},
		{4, Ban1Hour},
		{5, Ban24Hour},
		{10, Ban24Hour},
	}
	for _, tc := range cases {
		if got := escalationDuration(tc.count); got != tc.expected {
			t.Errorf("escalationDuration(%d) = %v, want %v", tc.count, got, tc.expected)
		}
	}
}

func TestOffenseCountEmpty(t *testing.T) {
	store := newTestStore(t)

	count, err := store.OffenseCount(context.Background(), "test_no_offenses")
	if err != nil {
		t.Fatalf("OffenseCount: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestRecordOffenseBelowThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i < AutoBanThreshold; i++ {
		banned, _, err := store.RecordOffense(ctx, "test_below", "spam_pattern")
		if err != nil {
			t.Fatalf("RecordOffense #%d: %v", i, err)
		}
		if banned {
			t.Fatalf("offense #%d triggered a ban before the threshold", i)
		}
	}

	banned, _, _, err := store.IsBanned(ctx, "test_below")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if banned {
		t.Error("expected no ban below threshold")
	}
}

func TestRecordOffenseAutoBan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var banned bool
	var duration time.Duration
	var err error
	for i := 0; i < AutoBanThreshold; i++ {
		banned, duration, err = store.RecordOffense(ctx, "test_autoban", "blocked_keyword")
		if err != nil {
			t.Fatalf("RecordOffense #%d: %v", i+1, err)
		}
	}
	if !banned {
		t.Fatal("expected auto-ban at threshold")
	}
	if duration != Ban15Min {
		t.Errorf("duration = %v, want %v", duration, Ban15Min)
	}

	isBanned, _, reason, err := store.IsBanned(ctx, "test_autoban")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if !isBanned {
		t.Fatal("expected banned after threshold")
	}
	if reason != "blocked_keyword" {
		t.Errorf("reason = %q, want %q", reason, "blocked_keyword")
	}
}

func TestRecordOffenseEscalates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < AutoBanThreshold; i++ {
		if _, _, err := store.RecordOffense(ctx, "test_escalate", "spam_pattern"); err != nil {
			t.Fatalf("RecordOffense: %v", err)
		}
	}

	banned, duration, err := store.RecordOffense(ctx, "test_escalate", "spam_pattern")
	if err != nil {
		t.Fatalf("RecordOffense: %v", err)
	}
	if !banned {
		t.Fatal("expected ban past threshold")
	}
	if duration != Ban1Hour {
		t.Errorf("duration = %v, want %v", duration, Ban1Hour)
	}
}
