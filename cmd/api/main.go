package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mvarga/waylog/internal/adapters/http"
	natsadapter "github.com/mvarga/waylog/internal/adapters/nats"
	"github.com/mvarga/waylog/internal/adapters/postgres"
	"github.com/mvarga/waylog/internal/adapters/temporal"
	"github.com/mvarga/waylog/internal/adapters/valkey"
	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/core/ports"
	"github.com/mvarga/waylog/internal/core/usecases"
	"github.com/mvarga/waylog/internal/mapengine"
	"github.com/mvarga/waylog/internal/pkg/config"
	"github.com/mvarga/waylog/internal/pkg/logging"
	"github.com/mvarga/waylog/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("waylog-api")
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
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.CollectPoolMetrics(ctx, 15*time.Second)

	// Cache. The services degrade to their uncached paths when the cache
	// interface is nil, so on failure the pointer must not be wrapped: a
	// typed-nil *valkey.Cache inside the interface would pass the nil
	// guards and panic on first use.
	vcache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, serving uncached", "error", err)
		vcache = nil
	} else {
		defer vcache.Close()
	}
	cache := cacheOrNil(vcache)

	// NATS
	npub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, trip events disabled", "error", err)
		npub = nil
	} else {
		defer npub.Close()
	}
	publisher := publisherOrNil(npub)

	// Raw NATS connection for the live map WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Relay trip lifecycle events to the broadcast subject so open map
	// sessions refresh when a trip is edited elsewhere.
	if publisher != nil {
		subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer subscriber.Close()
			err = subscriber.SubscribeTripEvents(ctx, "api-map-relay", func(ctx context.Context, event *natsadapter.TripEvent) error {
				payload, err := json.Marshal(map[string]string{"type": "trip_" + event.Kind, "slug": event.Slug})
				if err != nil {
					return err
				}
				return publisher.PublishBroadcast(ctx, payload)
			})
			if err != nil {
				slog.Warn("trip event relay failed to start", "error", err)
			}
		}
	}

	// Temporal (optional; without it new trips simply stay ungeocoded)
	var starter ports.WorkflowStarter
	if cfg.Temporal.Enabled {
		ts, err := temporal.NewStarter(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
		if err != nil {
			slog.Warn("temporal unavailable, geocoding disabled", "error", err)
		} else {
			defer ts.Close()
			starter = ts
		}
	}

	// Repos
	tripRepo := postgres.NewTripRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)

	// Use cases
	tripSvc := usecases.NewTripService(tripRepo, cache, publisher, starter)
	statsSvc := usecases.NewStatsService(tripRepo, cache)
	mapSvc := usecases.NewMapService(usecases.MapConfig{
		TileBaseURL: cfg.Map.TileURL,
		TileStyle:   cfg.Map.TileStyle,
		Engine: mapengine.Config{
			DefaultCenter:   domain.GeoPoint{Lat: cfg.Map.DefaultLat, Lon: cfg.Map.DefaultLon},
			DefaultZoom:     cfg.Map.DefaultZoom,
			MinZoom:         cfg.Map.MinZoom,
			MaxZoom:         cfg.Map.MaxZoom,
			SinglePointZoom: cfg.Map.SinglePointZoom,
		},
		Gesture: mapengine.GestureConfig{
			DragThresholdPx: cfg.Map.DragThresholdPx,
			InvertWheel:     cfg.Map.WheelZoomSign < 0,
		},
	}, tripSvc)
	authSvc, err := usecases.NewAuthService(sessionRepo, cache, cfg.Auth.AdminUser, cfg.Auth.AdminPasswordSHA256)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	deps := &http.Dependencies{
		Trips: tripSvc,
		Stats: statsSvc,
		Maps:  mapSvc,
		Auth:  authSvc,
		NATS:  natsConn,
		DB:    db,
		Cache: vcache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Waylog API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://waylog.mvarga.dev",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
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

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// cacheOrNil lifts the adapter into the port interface, keeping the
// interface untyped-nil when the adapter is absent so the services' cache
// guards fire instead of dereferencing a nil pointer.
func cacheOrNil(c *valkey.Cache) ports.CacheService {
	if c == nil {
		return nil
	}
	return c
}

// publisherOrNil is cacheOrNil for the event publisher.
func publisherOrNil(p *natsadapter.Publisher) ports.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
