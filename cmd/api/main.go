package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/emberline/faregate/internal/adapters/http"
	natsadapter "github.com/emberline/faregate/internal/adapters/nats"
	"github.com/emberline/faregate/internal/adapters/postgres"
	"github.com/emberline/faregate/internal/adapters/valkey"
	"github.com/emberline/faregate/internal/core/domain"
	"github.com/emberline/faregate/internal/core/ports"
	"github.com/emberline/faregate/internal/core/usecases"
	"github.com/emberline/faregate/internal/pkg/config"
	"github.com/emberline/faregate/internal/pkg/logging"
	"github.com/emberline/faregate/internal/pkg/metrics"
	"github.com/emberline/faregate/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("faregate-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Transit systems from configuration. A bad system is skipped so the
	// rest keep collecting fares.
	var systems []*domain.TransitSystem
	for _, sc := range cfg.Systems {
		sys, err := sc.Build()
		if err != nil {
			slog.Error("skipping misconfigured system", "system_id", sc.ID, "error", err)
			continue
		}
		systems = append(systems, sys)
	}
	if len(systems) == 0 {
		slog.Warn("no transit systems configured")
	}
	registry := usecases.NewSystemRegistry(systems)

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	// NATS
	var publisher ports.EventPublisher
	var notifier ports.Notifier
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = pub
		notifier = pub
		defer pub.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	stationRepo := postgres.NewStationRepo(db)
	routeRepo := postgres.NewRouteRepo(db)
	gateRepo := postgres.NewGateRepo(db)
	txRepo := postgres.NewTransactionRepo(db)
	staffRepo := postgres.NewStaffRepo(db)
	statsRepo := postgres.NewStatsRepo(db)
	accounts := postgres.NewAccounts(db)

	// Use cases
	stationSvc := usecases.NewStationService(registry, stationRepo)
	routeSvc := usecases.NewRouteService(registry, routeRepo)
	gateSvc := usecases.NewGateService(registry, stationSvc, gateRepo)
	fareSvc := usecases.NewFareService()
	statsSvc := usecases.NewStatsService(statsRepo, routeSvc)
	ledgerSvc := usecases.NewLedgerService(txRepo, accounts, publisher, statsSvc)
	journeySvc := usecases.NewJourneyService(registry, stationSvc, gateSvc, fareSvc,
		accounts, ledgerSvc, publisher, notifier, cacheSvc, cfg.Journeys.MaxTapDuration())
	payrollSvc := usecases.NewPayrollService(registry, staffRepo, accounts, ledgerSvc, nil, notifier)
	presenceSvc := usecases.NewPresenceService(payrollSvc, journeySvc)
	payrollSvc.SetPresence(presenceSvc)

	// Warm state from storage, then resume open journeys from the cache.
	loaders := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"stations", stationSvc.Load},
		{"routes", routeSvc.Load},
		{"gates", gateSvc.Load},
		{"stats", statsSvc.Load},
		{"ledger", ledgerSvc.Load},
		{"payroll", payrollSvc.Load},
	}
	for _, l := range loaders {
		if err := l.fn(ctx); err != nil {
			log.Fatalf("load %s: %v", l.name, err)
		}
	}
	if err := journeySvc.Restore(ctx); err != nil {
		slog.Warn("journey restore failed", "error", err)
	}

	// Background loops
	go journeySvc.RunSweeper(ctx, cfg.Journeys.SweepInterval())
	go payrollSvc.RunScheduler(ctx, cfg.Payroll.CheckInterval())
	go statsSvc.RunAutosave(ctx, cfg.Journeys.AutosaveInterval())
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	deps := &http.Dependencies{
		Systems:  registry,
		Stations: stationSvc,
		Routes:   routeSvc,
		Gates:    gateSvc,
		Fares:    fareSvc,
		Journeys: journeySvc,
		Ledger:   ledgerSvc,
		Stats:    statsSvc,
		Payroll:  payrollSvc,
		Presence: presenceSvc,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Faregate API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Stop background loops, then drain state to storage.
	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()

	if err := ledgerSvc.Flush(flushCtx); err != nil {
		slog.Error("ledger flush failed", "error", err)
	}
	if err := statsSvc.Save(flushCtx); err != nil {
		slog.Error("stats save failed", "error", err)
	}
	if err := journeySvc.Snapshot(flushCtx); err != nil {
		slog.Error("journey snapshot failed", "error", err)
	}

	slog.Info("server stopped")
}
