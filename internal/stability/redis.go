package stability

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session windows in Redis.
const DefaultKeyPrefix = "signbridge:history:"

// RedisStore keeps session windows in Redis lists so several service
// instances can share them.
type RedisStore struct {
	client   redis.UniversalClient
	capacity int
	ttl      time.Duration
	prefix   string
}

// NewRedisStore creates a store over an existing client. A zero ttl leaves
// keys without expiry.
func NewRedisStore(client redis.UniversalClient, capacity int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		capacity: capacity,
		ttl:      ttl,
		prefix:   DefaultKeyPrefix,
	}
}

// WithPrefix overrides the key prefix.
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	s.prefix = prefix
	return s
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Append implements HistoryStore.
func (s *RedisStore) Append(ctx context.Context, sessionID, label string) ([]string, error) {
	key := s.key(sessionID)

	var window *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, label)
		pipe.LTrim(ctx, key, int64(-s.capacity), -1)
		window = pipe.LRange(ctx, key, 0, -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stability: redis append for session %s: %w", sessionID, err)
	}
	return window.Val(), nil
}

// Clear implements HistoryStore.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("stability: redis clear for session %s: %w", sessionID, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
