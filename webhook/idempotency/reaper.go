package idempotency

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper periodically removes expired idempotency records.
type Reaper struct {
	store    Store
	interval time.Duration
	logger   zerolog.Logger
}

// NewReaper creates a reaper that sweeps on the given interval.
func NewReaper(store Store, interval time.Duration, logger zerolog.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reaper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled. Intended to be started as
// a background goroutine from main.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := r.store.Reap(ctx, time.Now())
			if err != nil {
				r.logger.Warn().Err(err).Msg("reaping expired idempotency records")
				continue
			}
			if count > 0 {
				r.logger.Info().Int("records_deleted", count).Msg("reaped expired idempotency records")
			}
		}
	}
}
