// ABOUTME: Concurrent fan-out of one incident report across all configured channels.
// ABOUTME: Per-channel outcomes are aggregated; no channel failure aborts another.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sableridge/watchdesk/internal/incident"
)

// Dispatcher fans an incident report out to its channels concurrently.
// The intake request is already successful by the time Dispatch runs — the
// incident ID is assigned — so every channel error lands in a Result, never
// in the caller's error path.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher. timeout bounds the whole fan-out so an
// intake response is never held hostage by one slow provider; zero means 10s.
func NewDispatcher(timeout time.Duration, channels ...Channel) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{channels: channels, timeout: timeout, log: slog.Default()}
}

// Dispatch attempts every channel and returns one Result per channel, in
// registration order. All sends run concurrently under a shared deadline;
// cancellation marks the remaining legs failed rather than hanging.
func (d *Dispatcher) Dispatch(ctx context.Context, r *incident.Report) []Result {
	dispatchID := uuid.New()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	results := make([]Result, len(d.channels))
	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			res := Result{Channel: ch.Name(), Attempted: true}
			if err := ch.Send(ctx, r); err != nil {
				res.Error = err.Error()
				d.log.ErrorContext(ctx, "notification channel failed",
					"dispatch_id", dispatchID,
					"incident_id", r.IncidentID,
					"channel", ch.Name(),
					"error", err,
				)
			} else {
				res.Sent = true
				d.log.InfoContext(ctx, "notification sent",
					"dispatch_id", dispatchID,
					"incident_id", r.IncidentID,
					"channel", ch.Name(),
				)
			}
			results[i] = res
		}(i, ch)
	}
	wg.Wait()
	return results
}
