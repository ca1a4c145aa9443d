package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/webhook/ratelimit"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func setupLimiter(t *testing.T, limit int, window time.Duration) (*miniredis.Miniredis, ratelimit.Limiter) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, ratelimit.NewRedisLimiter(client, limit, window, zerolog.Nop())
}

func TestAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("admits up to the limit, then denies", func(t *testing.T) {
		_, limiter := setupLimiter(t, 5, time.Minute)

		key := ratelimit.SourceKey("203.0.113.9", "polar")
		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow(ctx, key), "request %d", i)
		}
		assert.False(t, limiter.Allow(ctx, key))
	})

	t.Run("sources are throttled independently", func(t *testing.T) {
		_, limiter := setupLimiter(t, 1, time.Minute)

		assert.True(t, limiter.Allow(ctx, ratelimit.SourceKey("203.0.113.9", "polar")))
		assert.False(t, limiter.Allow(ctx, ratelimit.SourceKey("203.0.113.9", "polar")))
		assert.True(t, limiter.Allow(ctx, ratelimit.SourceKey("203.0.113.10", "polar")))
		assert.True(t, limiter.Allow(ctx, ratelimit.SourceKey("203.0.113.9", "github")))
	})

	t.Run("fails open when counters are unreachable", func(t *testing.T) {
		mr, limiter := setupLimiter(t, 1, time.Minute)
		mr.Close()

		assert.True(t, limiter.Allow(ctx, ratelimit.SourceKey("203.0.113.9", "polar")))
	})
}

func TestSourceKey(t *testing.T) {
	assert.Equal(t, "webhook:203.0.113.9:polar", ratelimit.SourceKey("203.0.113.9", "polar"))
	assert.Equal(t, "webhook:203.0.113.9:unknown", ratelimit.SourceKey("203.0.113.9", ""))
}

func TestRedact(t *testing.T) {
	redacted := ratelimit.Redact("webhook:203.0.113.9:polar")

	assert.NotContains(t, redacted, "203.0.113.9")
	assert.Contains(t, redacted, "polar")
}

func TestNoOpLimiter(t *testing.T) {
	limiter := ratelimit.NoOpLimiter{}

	for i := 0; i < 1000; i++ {
		assert.True(t, limiter.Allow(context.Background(), "any"))
	}
}
