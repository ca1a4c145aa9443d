//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimIntegration(t *testing.T) {
	ctx := context.Background()
	rc, cleanup := SetupRedisContainer(t, ctx)
	defer cleanup()

	repo := CreateTestRepository(t, rc.Addr)
	defer repo.Close(ctx)

	t.Run("claim round-trip against real Redis", func(t *testing.T) {
		key := fmt.Sprintf("evt_%d", time.Now().UnixNano())

		first := repo.Claim(ctx, key, map[string]any{"eventType": "order.created"}, time.Hour)
		require.True(t, first.IsNew)

		second := repo.Claim(ctx, key, nil, time.Hour)
		require.False(t, second.IsNew)
		require.NotNil(t, second.Existing)
		assert.Equal(t, key, second.Existing.Key)
	})

	t.Run("record key carries a TTL", func(t *testing.T) {
		key := fmt.Sprintf("evt_%d", time.Now().UnixNano())

		repo.Claim(ctx, key, nil, time.Hour)

		ttl, err := repo.GetClient().TTL(ctx, fmt.Sprintf("webhook:idempotency:%s", key)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Minute)
	})

	t.Run("high-contention claim has exactly one winner", func(t *testing.T) {
		key := fmt.Sprintf("evt_%d", time.Now().UnixNano())

		const claimers = 50
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < claimers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if repo.Claim(ctx, key, nil, time.Hour).IsNew {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
	})

	t.Run("reap removes only expired records", func(t *testing.T) {
		expired := fmt.Sprintf("evt_exp_%d", time.Now().UnixNano())
		fresh := fmt.Sprintf("evt_fresh_%d", time.Now().UnixNano())

		repo.Claim(ctx, expired, nil, time.Minute)
		repo.Claim(ctx, fresh, nil, 48*time.Hour)

		count, err := repo.Reap(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)

		assert.True(t, repo.Claim(ctx, expired, nil, time.Minute).IsNew)
		assert.False(t, repo.Claim(ctx, fresh, nil, time.Minute).IsNew)
	})
}
