package cache

import (
	"context"
	"errors"
	"sync"
	"time"
	"trendsetter/utils"

	"github.com/redis/go-redis/v9"
)

const RevokedTokensRedisKeyPrefix = "revoked_tokens:"

// TokenDenylist remembers revoked token ids until the tokens would have
// expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenId string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenId string) (bool, error)
}

type RedisTokenDenylist struct {
	redisClient *redis.Client
	clock       utils.Clock
}

func NewRedisTokenDenylist(redisConnection *redis.Client, clock utils.Clock) *RedisTokenDenylist {
	return &RedisTokenDenylist{
		redisClient: redisConnection,
		clock:       clock,
	}
}

func (c *RedisTokenDenylist) Revoke(ctx context.Context, tokenId string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(c.clock.Now())
	if ttl <= 0 {
		return nil
	}
	return c.redisClient.Set(ctx, RevokedTokensRedisKeyPrefix+tokenId, 1, ttl).Err()
}

func (c *RedisTokenDenylist) IsRevoked(ctx context.Context, tokenId string) (bool, error) {
	err := c.redisClient.Get(ctx, RevokedTokensRedisKeyPrefix+tokenId).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type MemoryTokenDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	clock   utils.Clock
}

func NewMemoryTokenDenylist(clock utils.Clock) *MemoryTokenDenylist {
	return &MemoryTokenDenylist{
		revoked: make(map[string]time.Time),
		clock:   clock,
	}
}

func (c *MemoryTokenDenylist) Revoke(ctx context.Context, tokenId string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiresAt.After(c.clock.Now()) {
		c.revoked[tokenId] = expiresAt
	}
	return nil
}

func (c *MemoryTokenDenylist) IsRevoked(ctx context.Context, tokenId string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiration, ok := c.revoked[tokenId]
	return ok && expiration.After(c.clock.Now()), nil
}

// Purge forgets tokens that have expired on their own.
func (c *MemoryTokenDenylist) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for id, expiration := range c.revoked {
		if !expiration.After(now) {
			delete(c.revoked, id)
		}
	}
}
