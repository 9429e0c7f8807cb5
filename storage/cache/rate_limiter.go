package cache

import (
	"context"
	"sync"
	"time"
	"trendsetter/utils"

	"github.com/redis/go-redis/v9"
)

const RateLimitRedisKeyPrefix = "rate_limit:"

// RateLimiter counts hits per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RedisRateLimiter struct {
	redisClient *redis.Client
	maxRequests int64
	window      time.Duration
}

func NewRedisRateLimiter(redisConnection *redis.Client, maxRequests int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		redisClient: redisConnection,
		maxRequests: int64(maxRequests),
		window:      window,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := RateLimitRedisKeyPrefix + key

	pipe := l.redisClient.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= l.maxRequests, nil
}

type clientState struct {
	windowStart  time.Time
	requestCount int
}

type MemoryRateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientState
	maxRequests int
	window      time.Duration
	clock       utils.Clock
}

func NewMemoryRateLimiter(maxRequests int, window time.Duration, clock utils.Clock) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		clients:     make(map[string]*clientState),
		maxRequests: maxRequests,
		window:      window,
		clock:       clock,
	}
}

func (l *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	state, ok := l.clients[key]
	if !ok || now.Sub(state.windowStart) >= l.window {
		state = &clientState{windowStart: now}
		l.clients[key] = state
	}
	state.requestCount++
	return state.requestCount <= l.maxRequests, nil
}

// Purge drops clients idle for two windows.
func (l *MemoryRateLimiter) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for key, state := range l.clients {
		if now.Sub(state.windowStart) > 2*l.window {
			delete(l.clients, key)
		}
	}
}
