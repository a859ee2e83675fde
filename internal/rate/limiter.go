// Package rate limita requests por clave (IP del cliente). Hay un backend
// Redis de ventana fija, compartido entre instancias, y uno en memoria de
// token bucket para una sola instancia.
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
	xrate "golang.org/x/time/rate"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.Window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	hits := incr.Val()
	res := Result{
		Allowed:     hits <= l.Max,
		Remaining:   max(l.Max-hits, 0),
		CurrentHits: hits,
		WindowTTL:   ttl.Val(),
	}
	if !res.Allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl.Val()
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Duration(math.Ceil(l.Window.Seconds())) * time.Second
		}
	}
	return res, nil
}

// MemoryLimiter mantiene un token bucket por clave. Los buckets sin uso
// expiran después de idleTTL.
type MemoryLimiter struct {
	limit xrate.Limit
	burst int
	mu    sync.Mutex
	byKey *gocache.Cache
}

// NewMemoryLimiter permite max requests por window, con ráfagas de hasta max.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = 1
	}
	idle := 10 * window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &MemoryLimiter{
		limit: xrate.Limit(float64(max) / window.Seconds()),
		burst: max,
		byKey: gocache.New(idle, idle),
	}
}

func (m *MemoryLimiter) bucket(key string) *xrate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.byKey.Get(key); ok {
		m.byKey.SetDefault(key, v)
		return v.(*xrate.Limiter)
	}
	l := xrate.NewLimiter(m.limit, m.burst)
	m.byKey.SetDefault(key, l)
	return l
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now()
	l := m.bucket(key)

	r := l.ReserveN(now, 1)
	if !r.OK() {
		return Result{Allowed: false, RetryAfter: time.Second}, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: d}, nil
	}
	return Result{Allowed: true, Remaining: int64(math.Floor(l.TokensAt(now)))}, nil
}
