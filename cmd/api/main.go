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

	"github.com/samirrijal/tapmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/tapmap/internal/adapters/nats"
	"github.com/samirrijal/tapmap/internal/adapters/postgres"
	"github.com/samirrijal/tapmap/internal/adapters/valkey"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/core/usecases"
	"github.com/samirrijal/tapmap/internal/pkg/config"
	"github.com/samirrijal/tapmap/internal/pkg/logging"
	"github.com/samirrijal/tapmap/internal/pkg/metrics"
	"github.com/samirrijal/tapmap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("tapmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

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

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			}
		}
	}()

	deps := &http.Dependencies{
		DB:             db,
		ViewportWindow: time.Duration(cfg.Client.DebounceMS) * time.Millisecond,
		DocsPath:       http.DefaultDocsPath,
	}

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Password, cfg.Valkey.DB)
	if err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// Use cases
	fountainRepo := postgres.NewFountainRepo(db.Pool)
	deps.MapView = usecases.NewMapViewService(fountainRepo, cache, usecases.MapViewOptions{
		IndividualCap:       cfg.MapView.IndividualCap,
		AggregateFetchLimit: cfg.MapView.AggregateFetchLimit,
		OverrideMaxAreaKm2:  cfg.MapView.OverrideMaxAreaKm2,
		CacheTTL:            cfg.MapView.CacheTTL,
	})
	deps.Fountains = usecases.NewFountainService(fountainRepo, cache, cfg.MapView.IndividualCap)

	// NATS: dataset updates invalidate cached plans
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, cache invalidation relies on TTL", "error", err)
	} else {
		defer sub.Close()
		deps.Events = sub
		if err := sub.SubscribeDatasetUpdated(ctx, deps.MapView.OnDatasetUpdated); err != nil {
			slog.Warn("dataset subscription failed", "error", err)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "TapMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "X-Map-Mode, X-Map-Precision, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
