package idempotency

import (
	"context"
	"time"
)

/* Durable "claim this event id" primitive with expiry.
 * Exactly one concurrent claimer of a key observes IsNew; everyone
 * else gets the winning record back. Retention is a bounded window,
 * not permanent dedup: after a record expires, a replay of the same
 * event id is treated as new. That tradeoff is accepted because the
 * provider's own retry policy stays well inside the window.
 */

// Record is the durable trace of a claimed event id.
type Record struct {
	Key         string         `json:"key"`
	FirstSeenAt time.Time      `json:"first_seen_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Summary     map[string]any `json:"summary,omitempty"`
}

// Result reports the outcome of a claim attempt.
type Result struct {
	IsNew         bool
	ShouldProcess bool
	Existing      *Record
}

// Store is the claim/reap contract backed by a durable collaborator.
type Store interface {
	/* Claim atomically inserts key if absent. On conflict the winning
	 * record is returned and ShouldProcess is false. On any storage
	 * failure the store FAILS OPEN: a dedup outage must not block
	 * legitimate payment confirmations, so the caller proceeds and the
	 * failure is logged. Downstream handlers are expected to be
	 * idempotent in their own right.
	 */
	Claim(ctx context.Context, key string, summary map[string]any, ttl time.Duration) Result

	/* Reap deletes all records whose expiry has passed and reports how
	 * many were removed. Runs on its own schedule, never on the request
	 * path.
	 */
	Reap(ctx context.Context, now time.Time) (int, error)
}
