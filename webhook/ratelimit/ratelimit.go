package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

/* Per-source request throttle for the webhook ingress.
 * Counters live in Redis so the limit holds across replicas; the
 * sliding window is a ZSET maintained by a Lua script, so check and
 * increment are atomic under concurrent delivery.
 */

const (
	// DefaultLimit / DefaultWindow: 100 requests per 60s per source.
	DefaultLimit  = 100
	DefaultWindow = 60 * time.Second
)

// Limiter decides whether one more request from sourceKey is allowed.
type Limiter interface {
	Allow(ctx context.Context, sourceKey string) bool
}

// SourceKey derives the throttle key from the network origin and the
// provider inferred from which signature header was present.
func SourceKey(remoteIP, provider string) string {
	if provider == "" {
		provider = "unknown"
	}
	return fmt.Sprintf("webhook:%s:%s", remoteIP, provider)
}

type redisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger zerolog.Logger
}

// slidingWindowScript drops entries older than the window, counts what
// remains, and admits the request by adding an entry when under limit.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_seconds = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

local current = redis.call('ZCARD', key)

if current < limit then
	redis.call('ZADD', key, now, now)
	redis.call('EXPIRE', key, window_seconds)
	return 1
else
	return 0
end
`)

// NewRedisLimiter creates a sliding-window limiter over the given client.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger zerolog.Logger) Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &redisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		logger: logger,
	}
}

func (r *redisLimiter) Allow(ctx context.Context, sourceKey string) bool {
	now := time.Now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	windowSeconds := int64(r.window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	result, err := slidingWindowScript.Run(ctx, r.client,
		[]string{"ratelimit:" + sourceKey},
		now, windowStart, r.limit, windowSeconds,
	).Int()
	if err != nil {
		// Counter outage must not block the payment path; same
		// fail-open posture as the idempotency store.
		r.logger.Warn().
			Err(err).
			Str("source_key", Redact(sourceKey)).
			Msg("rate limit check failed, allowing request")
		return true
	}

	return result == 1
}

/* Redact trims the network-origin portion of a source key for logging.
 * Full origins count as client identifiers; operators only need enough
 * to group offenders.
 */
func Redact(sourceKey string) string {
	parts := strings.Split(sourceKey, ":")
	if len(parts) < 3 {
		return sourceKey
	}
	origin := parts[1]
	if len(origin) > 6 {
		origin = origin[:6] + "…"
	}
	return strings.Join([]string{parts[0], origin, parts[len(parts)-1]}, ":")
}

// NoOpLimiter always allows requests (for testing or disabled rate limiting)
type NoOpLimiter struct{}

func (NoOpLimiter) Allow(ctx context.Context, sourceKey string) bool {
	return true
}
