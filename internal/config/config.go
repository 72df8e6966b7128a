// Package config parses and validates all application configuration from
// environment variables using caarlos0/env/v11.
//
// Call [Load] once at startup; pass the resulting [Config] to subcommands.
// Almost everything is optional by design: the service must keep answering
// requests from its bundled fallback data even when no upstream credential,
// database, or SMTP relay is configured.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration sourced from environment variables.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────────
	ListenAddr             string `env:"LISTEN_ADDR"              envDefault:":8080"`
	AppEnv                 string `env:"APP_ENV"                  envDefault:"development"`
	ExternalURL            string `env:"EXTERNAL_URL"             envDefault:"http://localhost:8080"`
	ShutdownTimeoutSeconds int    `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"30"`

	// ── Database (durable intel cache) ───────────────────────────────────────────
	// Optional: when empty the durable cache tier is disabled and serving
	// degrades straight to the bundled fallback on upstream failure.
	DatabaseURL       string        `env:"DATABASE_URL"`
	DBMaxConns        int32         `env:"DB_MAX_CONNS"          envDefault:"10"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	// ── Threat intel — Google Gemini ─────────────────────────────────────────────
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	// IntelInlineTimeout bounds the synchronous upstream attempt made by the
	// serving path before it falls back to cached or bundled data.
	IntelInlineTimeout time.Duration `env:"INTEL_INLINE_TIMEOUT" envDefault:"8s"`
	// IntelRefreshInterval is the cadence of the background regeneration loop.
	IntelRefreshInterval time.Duration `env:"INTEL_REFRESH_INTERVAL" envDefault:"4h"`

	// ── Email — SMTP ─────────────────────────────────────────────────────────────
	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"alerts@sableridge.io"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPTLS      bool   `env:"SMTP_TLS"  envDefault:"false"`

	// ── Incident notifications ───────────────────────────────────────────────────
	// IncidentNotifyEmails is the comma-separated response-team recipient list.
	// Empty means the email channel reports a configuration error per intake.
	IncidentNotifyEmails string `env:"INCIDENT_NOTIFY_EMAILS"`
	// IncidentWebhookURL enables the optional chat/paging channel when set.
	IncidentWebhookURL    string `env:"INCIDENT_WEBHOOK_URL"`
	IncidentWebhookSecret string `env:"INCIDENT_WEBHOOK_SECRET"`
	// DispatchTimeout bounds the whole notification fan-out so the intake
	// response never blocks on a slow provider.
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`

	// ── Rate limiting ────────────────────────────────────────────────────────────
	RateLimitEvictTTL time.Duration `env:"RATE_LIMIT_EVICT_TTL" envDefault:"15m"`

	// ── Logging ──────────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses and returns Config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// NotifyRecipients returns the parsed response-team email list.
func (c *Config) NotifyRecipients() []string {
	if c.IncidentNotifyEmails == "" {
		return nil
	}
	parts := strings.Split(c.IncidentNotifyEmails, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
