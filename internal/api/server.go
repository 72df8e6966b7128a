// ABOUTME: HTTP server struct, constructor, and handler wiring for Watchdesk.
// ABOUTME: Holds the intel service, incident dispatcher, and optional DB pool.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sableridge/watchdesk/internal/config"
	"github.com/sableridge/watchdesk/internal/incident"
	"github.com/sableridge/watchdesk/internal/intel"
	"github.com/sableridge/watchdesk/internal/notify"
)

// IntelService resolves a threat-intel batch for serving. *intel.Service
// implements it; tests substitute fakes.
type IntelService interface {
	Latest(ctx context.Context, force bool) intel.Batch
}

// IncidentDispatcher fans an accepted report out to notification channels.
type IncidentDispatcher interface {
	Dispatch(ctx context.Context, r *incident.Report) []notify.Result
}

// Server holds the dependencies for the HTTP layer.
type Server struct {
	intel       IntelService
	dispatcher  IncidentDispatcher
	db          *pgxpool.Pool // nil when no durable cache is configured
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server. db may be nil — serving degrades to the
// bundled fallback and healthz reports the cache tier as unconfigured.
func NewServer(intelSvc IntelService, dispatcher IncidentDispatcher, db *pgxpool.Pool, cfg *config.Config) *Server {
	evictTTL := 15 * time.Minute
	if cfg != nil && cfg.RateLimitEvictTTL > 0 {
		evictTTL = cfg.RateLimitEvictTTL
	}
	// 10 requests per minute, burst of 10 — generous enough that a panicked
	// reporter resubmitting a form is never locked out.
	rl := newIPRateLimiter(rate.Limit(10.0/60), 10, evictTTL)
	return &Server{
		intel:       intelSvc,
		dispatcher:  dispatcher,
		db:          db,
		rateLimiter: rl,
	}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 1 MB global body limit — incident descriptions are text, not uploads.
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", srv.healthzHandler)
	r.Handle("/metrics", promhttp.Handler())

	// ── Public API ────────────────────────────────────────────────────────────
	// Both routes are consumed cross-origin by the brochure site, so they
	// carry permissive CORS and answer their own preflights with 204.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(corsHeaders)
		r.MethodNotAllowed(methodNotAllowedHandler)

		r.Options("/threat-intel", preflightHandler)
		r.Get("/threat-intel", srv.threatIntelHandler)
		// The front-end fetch helper sends POST on retry; tolerate it.
		r.Post("/threat-intel", srv.threatIntelHandler)

		r.Options("/incidents", preflightHandler)
		r.With(srv.intakeRateLimit()).Post("/incidents", srv.createIncidentHandler)
	})

	return r
}

// corsHeaders applies the permissive CORS policy both public endpoints share.
func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

// preflightHandler answers CORS preflights with 204 and no body.
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode failed", "error", err)
	}
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler reports overall health. An unconfigured cache DB is still
// healthy — serving works on the bundled fallback; only an unreachable
// configured DB degrades the status.
func (srv *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	statusCode := http.StatusOK

	if srv.db == nil {
		resp.DB = "unconfigured"
	} else if err := srv.db.Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
		resp.Status = "degraded"
		resp.DB = "unavailable"
		statusCode = http.StatusServiceUnavailable
	} else {
		resp.DB = "ok"
	}

	writeJSON(w, statusCode, resp)
}
