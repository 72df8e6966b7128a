// Package notify fans an accepted incident report out to the response team.
//
// Each delivery leg is a [Channel]; the [Dispatcher] attempts every
// configured channel independently and reports per-channel outcomes. A
// channel failure is observability data, never a reason to fail the intake
// request that produced it.
package notify

import (
	"context"

	"github.com/sableridge/watchdesk/internal/incident"
)

// Channel is a single notification leg (email, chat webhook, ...).
type Channel interface {
	// Name is the stable identifier reported back to intake callers.
	Name() string
	// Send relays the report. Implementations must honor ctx cancellation.
	Send(ctx context.Context, r *incident.Report) error
}

// Result is the per-channel delivery outcome included in the intake response.
type Result struct {
	Channel   string `json:"channel"`
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}
