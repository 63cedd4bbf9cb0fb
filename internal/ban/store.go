// Package ban provides user ban management backed by Redis. Ban records
// are key-value pairs with TTL-based expiry:
//
//	Key:   ban:<userID>
//	Value: <reason>
//	TTL:   ban duration
//
// Repeated content-filter offenses escalate into automatic bans of
// increasing duration.
package ban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// BanPrefix is the Redis key prefix for ban records.
	BanPrefix = "ban:"

	// OffensesPrefix is the Redis key prefix for offense counters.
	OffensesPrefix = "offenses:"

	// Escalating ban durations by offense count.
	Ban15Min  = 15 * time.Minute // 1st and 2nd offense
	Ban1Hour  = 1 * time.Hour    // 3rd offense
	Ban24Hour = 24 * time.Hour   // 4th+ offense

	// OffensesTTL is how long the offense counter lives without new
	// offenses before it resets to zero.
	OffensesTTL = 24 * time.Hour

	// AutoBanThreshold is the offense count within OffensesTTL that
	// triggers an automatic ban.
	AutoBanThreshold = 3
)

// Store manages ban records in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a ban store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// IsBanned checks whether a user is currently banned. It returns the
// remaining ban duration and the recorded reason when they are. Redis
// errors are returned so callers can decide policy; the gateway fails
// open.
func (s *Store) IsBanned(ctx context.Context, userID string) (bool, time.Duration, string, error) {
	key := BanPrefix + userID

	reason, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, 0, "", nil
	}
	if err != nil {
		return false, 0, "", err
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// The ban exists but the TTL could not be read. Report banned
		// with zero remaining rather than swallowing the ban.
		return true, 0, reason, nil
	}
	return true, ttl, reason, nil
}

// Ban bans a user for the given duration. The ban expires on its own.
func (s *Store) Ban(ctx context.Context, userID string, duration time.Duration, reason string) error {
	return s.client.Set(ctx, BanPrefix+userID, reason, duration).Err()
}

// Unban lifts a user's ban immediately.
func (s *Store) Unban(ctx context.Context, userID string) error {
	return s.client.Del(ctx, BanPrefix+userID).Err()
}

// escalationDuration returns the ban duration for a given offense count.
func escalationDuration(offenseCount int) time.Duration {
	switch {
	case offenseCount <= AutoBanThreshold:
		return Ban15Min
	case offenseCount == AutoBanThreshold+1:
		return Ban1Hour
	default:
		return Ban24Hour
	}
}

// OffenseCount returns the current offense counter for a user. A missing
// or expired counter reads as zero.
func (s *Store) OffenseCount(ctx context.Context, userID string) (int, error) {
	val, err := s.client.Get(ctx, OffensesPrefix+userID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// RecordOffense increments the user's offense counter and, once the
// counter reaches the auto-ban threshold, applies a ban whose duration
// escalates with further offenses. The counter's TTL is set only on the
// first increment so the window does not slide.
//
// Returns whether a ban was applied and its duration.
func (s *Store) RecordOffense(ctx context.Context, userID, reason string) (bool, time.Duration, error) {
	key := OffensesPrefix + userID

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ban: offense incr: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, OffensesTTL).Err(); err != nil {
			return false, 0, fmt.Errorf("ban: offense expire: %w", err)
		}
	}

	if count < AutoBanThreshold {
		return false, 0, nil
	}

	duration := escalationDuration(int(count))
	if err := s.Ban(ctx, userID, duration, reason); err != nil {
		return false, 0, fmt.Errorf("ban: apply: %w", err)
	}
	return true, duration, nil
}
