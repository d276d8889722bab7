package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/ledger-reconciler/internal/admin"
	"github.com/emperorhan/ledger-reconciler/internal/alert"
	"github.com/emperorhan/ledger-reconciler/internal/config"
	"github.com/emperorhan/ledger-reconciler/internal/drift"
	"github.com/emperorhan/ledger-reconciler/internal/ledger"
	"github.com/emperorhan/ledger-reconciler/internal/matching"
	"github.com/emperorhan/ledger-reconciler/internal/metrics"
	"github.com/emperorhan/ledger-reconciler/internal/risk"
	"github.com/emperorhan/ledger-reconciler/internal/runlock"
	"github.com/emperorhan/ledger-reconciler/internal/store"
	"github.com/emperorhan/ledger-reconciler/internal/store/postgres"
	"github.com/emperorhan/ledger-reconciler/internal/tracing"
)

const (
	serverReadHeaderTimeout = 10 * time.Second
	serverShutdownTimeout   = 5 * time.Second
	dbPoolStatsInterval     = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting ledger reconciler",
		"port", cfg.Server.Port,
		"redis_locks", cfg.Redis.URL != "",
		"drift_enabled", cfg.Drift.BalanceSourceURL != "",
	)

	shutdownTracing, err := tracing.Init(context.Background(), "ledger-reconciler",
		cfg.Tracing.OTLPEndpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.MigrationsDir != "" {
		if err := db.RunMigrations(cfg.DB.MigrationsDir); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	var locker runlock.Locker
	if cfg.Redis.URL != "" {
		redisLocker, err := runlock.NewRedisLocker(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisLocker.Close()
		locker = redisLocker
	} else {
		logger.Warn("REDIS_URL not set, using in-process run locks; unsafe with multiple instances")
		locker = runlock.NewMemoryLocker()
	}

	alerter, closeAlerts := buildAlerter(cfg, logger)
	defer closeAlerts()

	txRepo := postgres.NewTransactionRepo(db)
	sugRepo := postgres.NewSuggestionRepo(db)
	rejRepo := postgres.NewRejectedPairRepo(db)
	auditRepo := postgres.NewAuditLogRepo(db)
	configRepo := postgres.NewMatchingConfigRepo(db)
	profileRepo := postgres.NewRiskProfileRepo(db)
	driftRepo := postgres.NewDriftRepo(db)

	ledgerSvc := ledger.NewService(db, txRepo, auditRepo, configRepo, logger)

	if cfg.MatchingSeedFile != "" {
		if err := seedMatchingConfig(configRepo, ledgerSvc, cfg.MatchingSeedFile, logger); err != nil {
			logger.Error("failed to seed matching config", "error", err, "file", cfg.MatchingSeedFile)
			os.Exit(1)
		}
	}

	matchingSvc := matching.NewService(db, txRepo, sugRepo, rejRepo, auditRepo, ledgerSvc, alerter, locker, logger)
	riskSvc := risk.NewService(txRepo, profileRepo, locker, alerter, cfg.Risk.HighRiskThreshold, logger)

	var driftSvc *drift.Service
	if cfg.Drift.BalanceSourceURL != "" {
		source := drift.NewHTTPSource(cfg.Drift.BalanceSourceURL, logger)
		driftSvc = drift.NewService(txRepo, driftRepo, source, ledgerSvc, alerter, locker, cfg.Drift.SourceRPS, logger)
	}

	adminSrv := admin.NewServer(ledgerSvc, matchingSvc, riskSvc, driftSvc, auditRepo, logger)

	rateLimiter := admin.NewRateLimitMiddleware(logger)
	defer rateLimiter.Stop()

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", admin.TracingMiddleware(admin.AuditMiddleware(logger, rateLimiter.Wrap(adminSrv.Handler()))))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		runDBPoolStatsPump(ctx, db, dbPoolStatsInterval, logger)
		return nil
	})

	if driftSvc != nil && cfg.Drift.SyncInterval > 0 {
		g.Go(func() error {
			runDriftLoop(ctx, driftSvc, cfg.Drift.SyncInterval, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("reconciler exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("reconciler shut down gracefully")
}

// buildAlerter assembles the notification chain from configured channels,
// falling back to a no-op when none are set. When Redis is configured alerts
// are additionally published to a stream for downstream consumers. The
// returned cleanup closes any channel that holds a connection.
func buildAlerter(cfg *config.Config, logger *slog.Logger) (alert.Alerter, func()) {
	cleanup := func() {}

	var channels []alert.Alerter
	if cfg.Alert.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.Alert.SlackWebhookURL))
	}
	if cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.Alert.WebhookURL))
	}
	if cfg.Redis.URL != "" {
		stream, err := alert.NewStreamAlerter(cfg.Redis.URL)
		if err != nil {
			logger.Warn("alert stream unavailable", "error", err)
		} else {
			channels = append(channels, stream)
			cleanup = func() { _ = stream.Close() }
		}
	}
	if len(channels) == 0 {
		logger.Info("no alert channels configured")
		return &alert.NoopAlerter{}, cleanup
	}
	return alert.NewMultiAlerter(cfg.Alert.Cooldown, logger, channels...), cleanup
}

// seedMatchingConfig persists the YAML seed on first boot only. Once an
// operator-saved row exists the file is ignored, so redeploys never clobber
// runtime tuning.
func seedMatchingConfig(configRepo store.MatchingConfigRepository, ledgerSvc *ledger.Service, path string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), postgres.DefaultQueryTimeout)
	defer cancel()

	if _, err := configRepo.Get(ctx); err == nil {
		logger.Info("matching config already persisted, ignoring seed file", "file", path)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check existing config: %w", err)
	}

	seed, err := config.LoadMatchingSeed(path)
	if err != nil {
		return err
	}
	if _, err := ledgerSvc.UpdateMatchingConfig(ctx, *seed, "system"); err != nil {
		return fmt.Errorf("persist seed config: %w", err)
	}
	logger.Info("matching config seeded", "file", path, "min_score", seed.MinScore)
	return nil
}

// dbStatsProvider is the slice of *sql.DB the stats pump needs.
type dbStatsProvider interface {
	Stats() sql.DBStats
}

// runDBPoolStatsPump feeds sql.DBStats into the pool gauges until ctx ends.
func runDBPoolStatsPump(ctx context.Context, db dbStatsProvider, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collectDBPoolStats(db, logger)
		}
	}
}

func collectDBPoolStats(db dbStatsProvider, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("db pool stats collection panicked", "panic", r)
		}
	}()

	stats := db.Stats()
	metrics.DBPoolOpen.Set(float64(stats.OpenConnections))
	metrics.DBPoolInUse.Set(float64(stats.InUse))
	metrics.DBPoolIdle.Set(float64(stats.Idle))
	metrics.DBPoolWaitCount.Set(float64(stats.WaitCount))
}

// runDriftLoop runs a drift sync every interval. A sync already in flight
// (this process or another holding the run lock) just skips the tick.
func runDriftLoop(ctx context.Context, svc *drift.Service, interval time.Duration, logger *slog.Logger) {
	logger.Info("drift sync loop started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("drift sync loop stopped")
			return
		case <-ticker.C:
			res, err := svc.Sync(ctx)
			switch {
			case errors.Is(err, runlock.ErrAlreadyRunning):
				logger.Debug("drift sync skipped, already running")
			case err != nil:
				logger.Error("drift sync failed", "error", err)
			default:
				logger.Info("drift sync completed",
					"pairs", res.Pairs,
					"warnings", res.Warnings,
					"criticals", res.Criticals,
					"errors", res.Errors,
					"elapsed_ms", res.TimeMS,
				)
			}
		}
	}
}
