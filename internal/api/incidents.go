// ABOUTME: Incident intake endpoint: strict validation, then multi-channel dispatch.
// ABOUTME: Validation fails fast with 400; channel failures never fail the request.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sableridge/watchdesk/internal/incident"
	"github.com/sableridge/watchdesk/internal/notify"
)

// intakeErrorBody is the 400 response naming what the caller must fix.
type intakeErrorBody struct {
	Error    string   `json:"error"`
	Required []string `json:"required,omitempty"`
}

// intakeResponseBody is the success response. Channels carries per-channel
// delivery outcomes for observability; the intake is successful regardless.
type intakeResponseBody struct {
	Success    bool            `json:"success"`
	IncidentID string          `json:"incidentId"`
	Status     string          `json:"status"`
	Channels   []notify.Result `json:"channels"`
}

// createIncidentHandler handles POST /api/v1/incidents.
//
// Validation happens before any external call; a rejected submission makes
// zero notification attempts. Once the incident ID is assigned the request
// cannot fail on channel outcomes — a 500 here could make a panicking caller
// stop trying to report an active breach.
func (srv *Server) createIncidentHandler(w http.ResponseWriter, r *http.Request) {
	var sub incident.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		incidentsRejected.Inc()
		writeJSON(w, http.StatusBadRequest, intakeErrorBody{Error: "invalid request body"})
		return
	}

	if verr := sub.Validate(); verr != nil {
		incidentsRejected.Inc()
		writeJSON(w, http.StatusBadRequest, intakeErrorBody{
			Error:    verr.Message,
			Required: verr.Required,
		})
		return
	}

	report := incident.New(&sub, time.Now())
	incidentsAccepted.Inc()
	slog.InfoContext(r.Context(), "incident intake accepted",
		"incident_id", report.IncidentID,
		"severity", report.Incident.Severity,
	)

	// Detach from the request context: if the reporter's browser drops the
	// connection the notifications must still go out. The dispatcher applies
	// its own deadline.
	results := srv.dispatcher.Dispatch(context.WithoutCancel(r.Context()), report)
	for _, res := range results {
		if res.Attempted && !res.Sent {
			notifyFailures.WithLabelValues(res.Channel).Inc()
		}
	}

	writeJSON(w, http.StatusOK, intakeResponseBody{
		Success:    true,
		IncidentID: report.IncidentID,
		Status:     report.Status,
		Channels:   results,
	})
}
