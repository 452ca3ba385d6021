package identity

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisSessionCache maps session tokens to user ids so most authenticated
// requests skip the sessions table.
type RedisSessionCache struct {
	client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

// Get returns an empty user id on a miss.
func (c *RedisSessionCache) Get(ctx context.Context, token string) (string, error) {
	userID, err := c.client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return userID, err
}

func (c *RedisSessionCache) Set(ctx context.Context, token, userID string, ttl time.Duration) error {
	return c.client.Set(ctx, sessionKeyPrefix+token, userID, ttl).Err()
}

func (c *RedisSessionCache) Delete(ctx context.Context, token string) error {
	return c.client.Del(ctx, sessionKeyPrefix+token).Err()
}
