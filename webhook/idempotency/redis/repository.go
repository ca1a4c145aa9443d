package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/webhook/idempotency"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

/* Redis implementation of idempotency.Store.
 * Records live under a string key with a TTL matching their expiry;
 * a ZSET scored by expiry backs the periodic reap sweep. The claim is
 * a single Lua script, so the insert-if-absent and the index update
 * are atomic under concurrent delivery.
 */

const (
	recordPrefix = "webhook:idempotency" // Record naming: webhook:idempotency:{event_id}
	expiryIndex  = "webhook:idempotency:expiry"
)

// claimScript returns the existing record on conflict, or the empty
// string when the claim succeeded.
var claimScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return existing
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
return ''
`)

type Repository struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int, logger zerolog.Logger) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{client: client, logger: logger}, nil
}

// NewRepositoryWithClient wraps an existing client (shared pools, tests).
func NewRepositoryWithClient(client *redis.Client, logger zerolog.Logger) *Repository {
	return &Repository{client: client, logger: logger}
}

// Claim attempts the atomic insert-if-absent for key.
func (r *Repository) Claim(ctx context.Context, key string, summary map[string]any, ttl time.Duration) idempotency.Result {
	now := time.Now()
	record := idempotency.Record{
		Key:         key,
		FirstSeenAt: now,
		ExpiresAt:   now.Add(ttl),
		Summary:     summary,
	}

	data, err := json.Marshal(record)
	if err != nil {
		// Summary values come from our own pipeline; treat as storage failure.
		return r.failOpen(key, err)
	}

	raw, err := claimScript.Run(ctx, r.client,
		[]string{recordKey(key), expiryIndex},
		data,
		strconv.FormatInt(ttl.Milliseconds(), 10),
		strconv.FormatInt(record.ExpiresAt.UnixMilli(), 10),
		key,
	).Text()
	if err != nil {
		return r.failOpen(key, err)
	}

	if raw == "" {
		return idempotency.Result{IsNew: true, ShouldProcess: true}
	}

	var existing idempotency.Record
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return r.failOpen(key, err)
	}

	return idempotency.Result{IsNew: false, ShouldProcess: false, Existing: &existing}
}

/* failOpen allows processing when the store cannot answer.
 * A dedup outage must not block payment confirmations; the cost is an
 * occasional double-processed event, which handlers tolerate.
 */
func (r *Repository) failOpen(key string, err error) idempotency.Result {
	r.logger.Warn().
		Err(err).
		Str("idempotency_key", key).
		Msg("idempotency check failed, allowing processing")
	return idempotency.Result{IsNew: true, ShouldProcess: true}
}

// Reap removes all records whose expiry has passed, in batches.
func (r *Repository) Reap(ctx context.Context, now time.Time) (int, error) {
	const batchSize = 100

	expired, err := r.client.ZRangeByScore(ctx, expiryIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("listing expired records: %w", err)
	}

	deleted := 0
	for start := 0; start < len(expired); start += batchSize {
		end := min(start+batchSize, len(expired))
		batch := expired[start:end]

		keys := make([]string, len(batch))
		members := make([]interface{}, len(batch))
		for i, key := range batch {
			keys[i] = recordKey(key)
			members[i] = key
		}

		pipe := r.client.TxPipeline()
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, expiryIndex, members...)
		if _, err := pipe.Exec(ctx); err != nil {
			return deleted, fmt.Errorf("deleting expired batch: %w", err)
		}
		deleted += len(batch)
	}

	return deleted, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (r *Repository) GetClient() *redis.Client {
	return r.client
}

func recordKey(key string) string {
	return fmt.Sprintf("%s:%s", recordPrefix, key)
}
