// Package housekeeping runs the periodic store maintenance named in
// spec.md §4.1 and §3: promoting stale pending rows to failed, and
// deleting terminal rows past the retention window.
package housekeeping

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Ash20pk/breakchain-sub000/internal/store"
)

// Config holds housekeeping's tunables (spec.md §6).
type Config struct {
	Interval      time.Duration // how often housekeeping runs; not itself a named config key
	PendingStale  time.Duration // PENDING_STALE_MS, default 1h
	Retention     time.Duration // RETENTION_MS, default 24h
}

// Runner periodically calls store.Housekeeping.
type Runner struct {
	store store.Store
	cfg   Config
	log   log.Logger
}

// New builds a housekeeping Runner.
func New(s store.Store, cfg Config) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &Runner{store: s, cfg: cfg, log: log.New("component", "housekeeping")}
}

// Run ticks at cfg.Interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.store.Housekeeping(ctx, r.cfg.PendingStale, r.cfg.Retention); err != nil {
				r.log.Error("housekeeping: pass failed", "err", err)
			}
		}
	}
}
