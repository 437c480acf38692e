package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/MissionForge/internal/adapter/filestore"
	mfhttp "github.com/Strob0t/MissionForge/internal/adapter/http"
	"github.com/Strob0t/MissionForge/internal/adapter/litellm"
	"github.com/Strob0t/MissionForge/internal/adapter/natsbus"
	mfotel "github.com/Strob0t/MissionForge/internal/adapter/otel"
	"github.com/Strob0t/MissionForge/internal/adapter/postgres"
	"github.com/Strob0t/MissionForge/internal/adapter/ristretto"
	"github.com/Strob0t/MissionForge/internal/adapter/ws"
	"github.com/Strob0t/MissionForge/internal/config"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
	"github.com/Strob0t/MissionForge/internal/logger"
	"github.com/Strob0t/MissionForge/internal/port/broadcast"
	"github.com/Strob0t/MissionForge/internal/port/missionlog"
	"github.com/Strob0t/MissionForge/internal/port/risk"
	"github.com/Strob0t/MissionForge/internal/resilience"
	"github.com/Strob0t/MissionForge/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"data_dir", cfg.Store.DataDir,
		"max_workers", cfg.Scheduler.MaxWorkers,
	)

	ctx := context.Background()

	otelShutdown := mfotel.InitTracer(cfg.Logging.Service)
	defer func() { _ = otelShutdown(ctx) }()

	// --- Infrastructure ---

	store, err := filestore.New(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}

	// PostgreSQL is optional: without it missions still run, they just
	// skip analytics recording and risk-aware planning.
	var sink missionlog.Sink = missionlog.Nop{}
	var risks risk.Lookup = risk.Empty{}
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("postgres connected, migrations applied")

		sink = postgres.NewSink(pool)
		cached, err := ristretto.NewRiskCache(
			postgres.NewRiskLookup(pool),
			cfg.RiskCache.MaxSizeMB<<20,
			cfg.RiskCache.TTL,
		)
		if err != nil {
			return fmt.Errorf("risk cache: %w", err)
		}
		defer cached.Close()
		risks = cached
	}

	hub := ws.NewHub()
	broadcasters := broadcast.Multi{hub}

	// NATS is optional the same way.
	if cfg.NATS.URL != "" {
		bus, err := natsbus.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = bus.Close() }()
		broadcasters = append(broadcasters, bus)
	}

	// --- Services ---

	generator := litellm.NewClient(cfg.Generation)
	generator.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	card := tier.DefaultRateCard()
	executor := service.NewExecutor(cfg.Executor)
	engine := service.NewMissionEngine(
		generator,
		nil, // no external quality checker wired; verdict defaults to pass
		risks,
		executor,
		service.CommandSideOps(cfg.Executor),
		card,
		cfg.Generation,
	)

	scheduler := service.NewSchedulerService(store, engine, broadcasters, sink, cfg.Scheduler, cfg.Mission)

	metrics, err := mfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	scheduler.SetMetrics(metrics)

	// Repair jobs left behind by a previous process before accepting new ones.
	if err := scheduler.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	// --- HTTP ---

	handlers := mfhttp.NewHandlers(scheduler, card)

	r := chi.NewRouter()
	r.Use(mfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(mfhttp.SecurityHeaders)
	r.Use(mfhttp.RequestID)
	r.Use(mfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mfotel.HTTPMiddleware(cfg.Logging.Service))

	mfhttp.MountRoutes(r, handlers, hub.HandleWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	// Let in-flight missions reach a round boundary; anything still
	// running is reconciled as interrupted at next startup.
	return scheduler.Shutdown(shutdownCtx)
}
