package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/config"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// tokenBucketScript refills capacity tokens every interval and takes one.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RateLimiter throttles PIN attempts per client IP and shop. It uses a Redis
// token bucket shared by every API instance and falls back to an in-process
// limiter when Redis is not configured or fails.
type RateLimiter struct {
	cfg   config.RateLimitConfig
	rdb   *redis.Client
	local *localLimiter
	now   func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
	return &RateLimiter{
		cfg:   cfg,
		rdb:   rdb,
		local: newLocalLimiter(cfg),
		now:   time.Now,
	}
}

func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	if !l.cfg.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.key(r)
		allowed, remaining, retryAfter := l.take(r.Context(), key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			response.TooManyRequests(w, "RATE_LIMITED", "Too many PIN attempts, try again later", map[string]any{
				"retry_after": secs,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) take(ctx context.Context, key string) (bool, int64, time.Duration) {
	if l.rdb != nil {
		allowed, remaining, retry, err := l.takeRedis(ctx, key)
		if err == nil {
			return allowed, remaining, retry
		}
		slog.Warn("rate limiter redis error, using local limiter", "key", key, "error", err)
	}
	return l.local.take(key, l.now())
}

func (l *RateLimiter) takeRedis(ctx context.Context, key string) (bool, int64, time.Duration, error) {
	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(vals) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected token bucket result %v", vals)
	}
	return vals[0] == 1, vals[1], time.Duration(vals[2]) * time.Millisecond, nil
}

func (l *RateLimiter) key(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || ip == "" {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown"
	}
	parts := []string{l.cfg.Prefix, "pin", "ip", ip}
	if shopID := chi.URLParam(r, "shopID"); shopID != "" {
		parts = append(parts, "shop", shopID)
	}
	return strings.Join(parts, ":")
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localLimiter struct {
	mu      sync.Mutex
	cfg     config.RateLimitConfig
	entries map[string]*localEntry
}

func newLocalLimiter(cfg config.RateLimitConfig) *localLimiter {
	return &localLimiter{cfg: cfg, entries: make(map[string]*localEntry)}
}

func (l *localLimiter) take(key string, now time.Time) (bool, int64, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.cfg.TTL {
			delete(l.entries, k)
		}
	}

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Every(l.cfg.RefillInterval), l.cfg.Capacity)}
		l.entries[key] = e
	}
	e.lastSeen = now

	res := e.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, 0, delay
	}
	return true, int64(e.limiter.TokensAt(now)), 0
}
