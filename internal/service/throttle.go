package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meowchi_miniapp/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ThrottleMemory = "memory"
	ThrottleRedis  = "redis"

	pruneThreshold = 10000
)

// Throttle sheds duplicate taps before they reach the row lock. It is a
// best-effort cache, never the gate that keeps the counter under its cap,
// and every implementation lets a tap through when unsure.
type Throttle interface {
	Allow(ctx context.Context, userID int64) (bool, time.Duration)
}

// NewThrottle picks the backend. A non-positive window disables throttling.
func NewThrottle(cfg MeowConfig, cli redis.UniversalClient) Throttle {
	if cfg.ThrottleWindow <= 0 {
		return NoThrottle{}
	}
	if cfg.ThrottleBackend == ThrottleRedis && cli != nil {
		return NewRedisThrottle(cli, cfg.ThrottleWindow)
	}
	return NewMemoryThrottle(cfg.ThrottleWindow)
}

type NoThrottle struct{}

func (NoThrottle) Allow(context.Context, int64) (bool, time.Duration) {
	return true, 0
}

// MemoryThrottle is per process; a multi-worker deployment only gets
// per-worker spacing out of it.
type MemoryThrottle struct {
	mu     sync.Mutex
	window time.Duration
	last   map[int64]time.Time
	now    func() time.Time
}

func NewMemoryThrottle(window time.Duration) *MemoryThrottle {
	return &MemoryThrottle{
		window: window,
		last:   make(map[int64]time.Time),
		now:    time.Now,
	}
}

func (t *MemoryThrottle) Allow(_ context.Context, userID int64) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if prev, ok := t.last[userID]; ok {
		if elapsed := now.Sub(prev); elapsed >= 0 && elapsed < t.window {
			return false, t.window - elapsed
		}
	}

	if len(t.last) >= pruneThreshold {
		for id, at := range t.last {
			if now.Sub(at) >= t.window {
				delete(t.last, id)
			}
		}
	}
	t.last[userID] = now

	return true, 0
}

// RedisThrottle shares the spacing across workers through SET NX PX.
type RedisThrottle struct {
	cli    redis.UniversalClient
	window time.Duration
}

func NewRedisThrottle(cli redis.UniversalClient, window time.Duration) *RedisThrottle {
	return &RedisThrottle{
		cli:    cli,
		window: window,
	}
}

func (t *RedisThrottle) Allow(ctx context.Context, userID int64) (bool, time.Duration) {
	key := t.key(userID)

	ok, err := t.cli.SetNX(ctx, key, 1, t.window).Result()
	if err != nil {
		logger.Logger().Warn("tap throttle unavailable, letting tap through",
			zap.Int64("telegram_id", userID), zap.Error(err))
		return true, 0
	}
	if ok {
		return true, 0
	}

	ttl, err := t.cli.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = t.window
	}
	return false, ttl
}

func (t *RedisThrottle) key(userID int64) string {
	return fmt.Sprintf("meow:tap_throttle:%d", userID)
}
