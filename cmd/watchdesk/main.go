// Command watchdesk is the Sable Ridge Security site backend.
//
// Subcommands:
//
//	serve     — HTTP server (threat-intel + incident intake) + embedded intel refresher
//	generate  — run one threat-intel generation cycle and exit (platform cron target)
//	migrate   — run pending database migrations and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Embeds the IANA timezone database in the binary so that time.LoadLocation
	// works inside distroless containers that have no /usr/share/zoneinfo.
	_ "time/tzdata"

	// Automatically sets GOMEMLIMIT from the cgroup memory limit so that the
	// Go GC triggers before the OOM killer fires in containers.
	_ "github.com/KimMachineGun/automemlimit"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/sableridge/watchdesk/internal/api"
	"github.com/sableridge/watchdesk/internal/config"
	"github.com/sableridge/watchdesk/internal/intel"
	"github.com/sableridge/watchdesk/internal/notify"
	"github.com/sableridge/watchdesk/internal/store"
	"github.com/sableridge/watchdesk/migrations"
)

func main() {
	root := &cobra.Command{
		Use:   "watchdesk",
		Short: "Watchdesk — threat-intel cache and incident-intake backend",
		// Silence default error printing; we print it ourselves with slog.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		serveCmd(),
		generateCmd(),
		migrateCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// ── serve ─────────────────────────────────────────────────────────────────────

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and embedded intel refresher",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// The durable intel cache is optional: without DATABASE_URL the serving
	// path degrades straight from upstream failure to the bundled fallback.
	var (
		db         *pgxpool.Pool
		cacheStore intel.CacheStore
	)
	if cfg.DatabaseURL != "" {
		db, err = newPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		cacheStore = store.New(db)
	} else {
		slog.Info("no DATABASE_URL configured, durable intel cache disabled")
	}

	generator := intel.NewGenerator(cfg.GeminiAPIKey, cfg.GeminiModel, nil)
	intelSvc := intel.NewService(generator, cacheStore, cfg.IntelInlineTimeout, cfg.IntelRefreshInterval)

	// Scheduled write path: the only writer of the durable cache. The
	// goroutine is intentionally fire-and-forget; the loop exits on ctx
	// cancellation, which happens before or alongside HTTP server shutdown.
	refresher := intel.NewRefresher(intelSvc, cfg.IntelRefreshInterval)
	go refresher.Start(ctx)

	dispatcher := notify.NewDispatcher(cfg.DispatchTimeout, buildChannels(cfg)...)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(intelSvc, dispatcher, db, cfg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Write timeout must comfortably exceed the inline upstream attempt
		// plus the dispatch window.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		stop() // release signal notification
	}

	slog.Info("shutting down", "timeout_seconds", cfg.ShutdownTimeoutSeconds)
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// buildChannels assembles the notification fan-out from configuration.
// Email is always present — an unconfigured recipient list is reported as a
// per-intake channel error rather than silently dropping the leg. The chat
// webhook is gated on its URL.
func buildChannels(cfg *config.Config) []notify.Channel {
	channels := []notify.Channel{
		notify.NewEmailChannel(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			TLS:      cfg.SMTPTLS,
		}, cfg.NotifyRecipients()),
	}
	if cfg.IncidentWebhookURL != "" {
		channels = append(channels, notify.NewWebhookChannel(
			notify.BuildSafeClient(), cfg.IncidentWebhookURL, cfg.IncidentWebhookSecret))
	}
	return channels
}

// ── generate ──────────────────────────────────────────────────────────────────

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run one threat-intel generation cycle and exit",
		RunE:  runGenerate,
	}
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(newLogger(cfg))

	if cfg.GeminiAPIKey == "" {
		// Hard precondition for the scheduled path: unlike serving, there is
		// no fallback to produce here.
		return intel.ErrNotConfigured
	}

	var cacheStore intel.CacheStore
	if cfg.DatabaseURL != "" {
		db, err := newPool(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		cacheStore = store.New(db)
	}

	generator := intel.NewGenerator(cfg.GeminiAPIKey, cfg.GeminiModel, nil)
	svc := intel.NewService(generator, cacheStore, cfg.IntelInlineTimeout, cfg.IntelRefreshInterval)

	// One attempt, generous bound; cron provides the retry cadence.
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	return svc.GenerateAndStore(ctx)
}

// ── migrate ───────────────────────────────────────────────────────────────────

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending database migrations and exit",
		RunE:  runMigrate,
	}
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("migrate: DATABASE_URL is required")
	}

	slog.Info("running migrations")

	// Source: embedded SQL files from the migrations package.
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	// golang-migrate requires a *sql.DB. Use pgx's stdlib adapter so the same
	// driver is used project-wide. No pooling needed here — this is a one-shot
	// migration run.
	connCfg, err := pgx.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse db url: %w", err)
	}
	db := stdlib.OpenDB(*connCfg)
	defer db.Close() //nolint:errcheck

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, _, _ := m.Version() //nolint:errcheck
	slog.Info("migrations complete", "version", version)
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// newPool creates and validates a pgxpool. Retries with linear backoff to
// handle the container-startup race where Postgres is not immediately ready.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MaxConnIdleTime = cfg.DBMaxConnIdleTime

	var (
		db      *pgxpool.Pool
		connErr error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		db, connErr = pgxpool.NewWithConfig(ctx, poolCfg)
		if connErr == nil {
			if connErr = db.Ping(ctx); connErr == nil {
				return db, nil
			}
			db.Close()
		}
		slog.Warn("database not ready, retrying", "attempt", attempt, "error", connErr)
		// time.NewTimer (not time.After) to avoid leaking the timer if ctx
		// is cancelled before the timer fires.
		timer := time.NewTimer(time.Duration(attempt) * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("database unavailable after retries: %w", connErr)
}

// newLogger creates a slog.Logger based on the configured log level and format.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" || cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
