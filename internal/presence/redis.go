package presence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix is the Redis key prefix for presence entries. The value of each
// key is the connection's display name.
const KeyPrefix = "presence:"

// scanBatch is the COUNT hint passed to SCAN when listing entries.
const scanBatch = 100

// RedisStore is the production presence store, shared by every server
// instance through Redis. Entries self-heal via TTL expiry, so no cross
// instance coordination is needed on ungraceful disconnects.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a presence store connected to Redis at the given
// address. It verifies the connection before returning.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("presence: redis connection failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing Redis client. Used when the
// client is shared with other Redis-backed components.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Register sets the presence entry with the given TTL, overwriting any
// previous entry for the same connection.
func (s *RedisStore) Register(ctx context.Context, connID, displayName string, ttl time.Duration) error {
	if err := s.client.Set(ctx, KeyPrefix+connID, displayName, ttl).Err(); err != nil {
		return fmt.Errorf("presence: register %s: %w", connID, err)
	}
	return nil
}

// Refresh extends the TTL of an existing entry. EXPIRE on a missing key is a
// no-op in Redis, which is exactly the contract: a heartbeat that arrives
// after the entry expired must not bring it back.
func (s *RedisStore) Refresh(ctx context.Context, connID string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, KeyPrefix+connID, ttl).Err(); err != nil {
		return fmt.Errorf("presence: refresh %s: %w", connID, err)
	}
	return nil
}

// Deregister deletes the presence entry.
func (s *RedisStore) Deregister(ctx context.Context, connID string) error {
	if err := s.client.Del(ctx, KeyPrefix+connID).Err(); err != nil {
		return fmt.Errorf("presence: deregister %s: %w", connID, err)
	}
	return nil
}

// ListDistinctNames scans all presence keys and returns the deduplicated,
// sorted display names. Keys that expire between the SCAN and the MGET are
// skipped, giving a best-effort point-in-time view.
func (s *RedisStore) ListDistinctNames(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, KeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("presence: scan: %w", err)
	}

	if len(keys) == 0 {
		return []string{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: mget: %w", err)
	}

	seen := make(map[string]bool, len(values))
	names := make([]string, 0, len(values))
	for _, v := range values {
		name, ok := v.(string)
		if !ok || name == "" {
			continue // key expired between SCAN and MGET
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

// Client returns the underlying Redis client for use by other packages.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
