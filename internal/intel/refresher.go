// ABOUTME: Fixed-interval regeneration loop embedded in the serve process.
// ABOUTME: Single trigger, no overlap, failures logged and retried next tick.
package intel

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Refresher drives GenerateAndStore on a fixed interval. Concurrent runs are
// not expected (one ticker, one goroutine) and no locking is modeled —
// last writer wins on the single cache entry, which is acceptable for
// advisory content.
type Refresher struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

// NewRefresher creates a Refresher. interval defaults to 4h when zero.
func NewRefresher(svc *Service, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 4 * time.Hour
	}
	return &Refresher{svc: svc, interval: interval, log: slog.Default()}
}

// Start runs one immediate cycle (warming the cache after deploy) and then
// one per interval until ctx is cancelled. Uses time.NewTicker (not
// time.After) to avoid timer leaks.
func (r *Refresher) Start(ctx context.Context) {
	if !r.svc.gen.Configured() {
		r.log.Info("intel refresher disabled: no upstream API key")
		return
	}

	r.log.Info("intel refresher started", "interval", r.interval)
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("intel refresher stopping")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	if err := r.svc.GenerateAndStore(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// Single attempt per tick; the next tick is the retry.
		r.log.Error("scheduled intel generation failed", "error", err)
	}
}
