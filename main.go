// Command userservice serves the /users REST resource.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Skryldev/userservice/config"
	"github.com/Skryldev/userservice/db"
	"github.com/Skryldev/userservice/metrics"
	"github.com/Skryldev/userservice/repo"
	"github.com/Skryldev/userservice/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("userservice exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ── 0. Configuration and logger ──────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// ── 1. Metrics on a private registry ─────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ── 2. Database ──────────────────────────────────────────────────────
	database, err := db.OpenWithDriver(cfg.DBDriver, cfg.DriverOptions(), cfg.DBConfig(
		db.NewLogHook(db.LogHookConfig{
			Logger:             logger,
			SlowQueryThreshold: cfg.SlowThreshold,
		}),
		db.NewMetricsHook(m),
	))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()
	reg.MustRegister(collectors.NewDBStatsCollector(database.Raw(), cfg.DBDriver))

	logger.Info("database connected", "driver", cfg.DBDriver, "stats", database.Stats())

	// ── 3. HTTP server ───────────────────────────────────────────────────
	app := server.New(server.Options{
		Users:    repo.NewUserRepo(database),
		Health:   database,
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
	})

	// ── 4. Lifecycle ─────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.Addr())
		return app.Listen(cfg.Addr(), fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
