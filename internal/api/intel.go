// ABOUTME: Threat-intel endpoint: tiered Cache-Control, refresh override, 200-always envelope.
// ABOUTME: Upstream failures are invisible to callers — the envelope source flag is the tell.
package api

import (
	"net/http"
	"time"

	"github.com/sableridge/watchdesk/internal/intel"
)

// intelCacheControl is the tiered caching directive the CDN keys off:
// browser 1h, edge 4h, stale-while-revalidate 24h. The edge cache is the
// primary bound on upstream API spend — tune with care.
const intelCacheControl = "public, max-age=3600, s-maxage=14400, stale-while-revalidate=86400"

// intelEnvelope is the JSON response for the threat-intel endpoint.
type intelEnvelope struct {
	Success     bool            `json:"success"`
	Articles    []intel.Article `json:"articles"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Source      string          `json:"source"` // "ai" or "fallback"
}

// threatIntelHandler handles GET and POST /api/v1/threat-intel.
//
// ?refresh=true forces a fresh upstream attempt, skips the durable-cache
// fallback tier, and marks the response no-store so the CDN cannot answer
// from edge. Every outcome is HTTP 200 — degradation shows up only in the
// source field.
func (srv *Server) threatIntelHandler(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"

	batch := srv.intel.Latest(r.Context(), force)
	intelRequests.WithLabelValues(batch.Source).Inc()

	if force {
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", intelCacheControl)
	}

	writeJSON(w, http.StatusOK, intelEnvelope{
		Success:     true,
		Articles:    batch.Articles,
		GeneratedAt: batch.GeneratedAt,
		Source:      batch.Source,
	})
}
