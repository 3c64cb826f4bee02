package infrastructure

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether one more request for key is allowed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// RedisRateLimiter is a fixed-window counter shared by every API replica.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, perMinute int) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  perMinute,
		window: time.Minute,
		prefix: "postulaciones:verify:",
		now:    time.Now,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	k := l.prefix + key + ":" + strconv.FormatInt(slot, 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return true, errors.Wrap(err, "redisRateLimiter.Allow")
	}
	return incr.Val() <= int64(l.limit), nil
}

// MemoryRateLimiter counts requests per key in a one minute window that
// opens on the key's first request. It is used when redis is not configured.
// Keys whose window has closed are dropped at most once per window.
type MemoryRateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

type window struct {
	opened time.Time
	count  int
}

func NewMemoryRateLimiter(perMinute int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limit:   perMinute,
		window:  time.Minute,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.opened) >= l.window {
		w = &window{opened: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, nil
}

// sweep drops closed windows. Callers hold mu.
func (l *MemoryRateLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.opened) >= l.window {
			delete(l.windows, key)
		}
	}
	l.lastSweep = now
}

func (l *MemoryRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
