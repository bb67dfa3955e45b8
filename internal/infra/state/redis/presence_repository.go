package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix namespaces every key written by this package.
const DefaultKeyPrefix = "snsu:"

// connectionTTL bounds how long a counter survives without traffic, so a
// crashed process cannot pin a user online forever.
const connectionTTL = 24 * time.Hour

// decrScript decrements a counter without letting it go negative.
var decrScript = redis.NewScript(`
local n = redis.call("DECR", KEYS[1])
if n <= 0 then
	redis.call("DEL", KEYS[1])
	return 0
end
redis.call("EXPIRE", KEYS[1], ARGV[1])
return n
`)

// RedisPresenceRepository implements repository.PresenceRepository and
// repository.RateLimiter.
type RedisPresenceRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisPresenceRepository panics on a nil client.
func NewRedisPresenceRepository(client *redis.Client, keyPrefix string) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisPresenceRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisPresenceRepository) connectionsKey(userID uint) string {
	return fmt.Sprintf("%spresence:%d:connections", r.keyPrefix, userID)
}

func (r *RedisPresenceRepository) connectionsPattern() string {
	return r.keyPrefix + "presence:*:connections"
}

func (r *RedisPresenceRepository) rateLimitKey(key string) string {
	return r.keyPrefix + "ratelimit:" + key
}

func (r *RedisPresenceRepository) IncrementConnections(ctx context.Context, userID uint) (int64, error) {
	key := r.connectionsKey(userID)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, connectionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis: failed to increment connections for user %d on key %s: %w", userID, key, err)
	}
	return incr.Val(), nil
}

func (r *RedisPresenceRepository) DecrementConnections(ctx context.Context, userID uint) (int64, error) {
	key := r.connectionsKey(userID)
	n, err := decrScript.Run(ctx, r.client, []string{key}, int(connectionTTL.Seconds())).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to decrement connections for user %d on key %s: %w", userID, key, err)
	}
	return n, nil
}

func (r *RedisPresenceRepository) ConnectionCount(ctx context.Context, userID uint) (int64, error) {
	key := r.connectionsKey(userID)
	n, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: failed to read connections for user %d from %s: %w", userID, key, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// ResetConnections deletes every connection counter under the prefix.
// Counters left by a process that died without unregistering its sockets
// would otherwise hide the next 0→1 and 1→0 transitions.
func (r *RedisPresenceRepository) ResetConnections(ctx context.Context) (int, error) {
	pattern := r.connectionsPattern()
	removed := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("redis: failed to scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis: failed to delete connection counters: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// CheckRateLimit reports true when key has been hit more than limit times in
// the current window.
func (r *RedisPresenceRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	key = r.rateLimitKey(key)
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}
