package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/directionhq/frontdesk-api/config"
	"github.com/directionhq/frontdesk-api/internal/handler"
	authHandler "github.com/directionhq/frontdesk-api/internal/handler/auth"
	visitHandler "github.com/directionhq/frontdesk-api/internal/handler/visit"
	"github.com/directionhq/frontdesk-api/internal/middleware"
	"github.com/directionhq/frontdesk-api/internal/repository/postgres"
	"github.com/directionhq/frontdesk-api/internal/router"
	allocatorService "github.com/directionhq/frontdesk-api/internal/service/allocator"
	auditService "github.com/directionhq/frontdesk-api/internal/service/audit"
	authService "github.com/directionhq/frontdesk-api/internal/service/auth"
	"github.com/directionhq/frontdesk-api/internal/service/feed"
	visitService "github.com/directionhq/frontdesk-api/internal/service/visit"
	"github.com/directionhq/frontdesk-api/internal/worker"
	"github.com/directionhq/frontdesk-api/pkg/auth"
	"github.com/directionhq/frontdesk-api/pkg/logger"
	redisBroker "github.com/directionhq/frontdesk-api/pkg/messaging/redis"
	"github.com/directionhq/frontdesk-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, cfg.Database.Name),
	)
	appMetrics := metrics.NewMetrics("frontdesk", registry)

	// Repositories
	patientRepo := postgres.NewPatientRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	counterRepo := postgres.NewCounterRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Redis fans visit events out across API instances.
	zl := log.Logger
	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{URL: cfg.Redis.URL}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Services
	auditSvc := auditService.NewService(auditRepo, appLogger, appMetrics)
	defer auditSvc.Close()

	allocatorSvc := allocatorService.NewService(counterRepo, allocatorService.Config{
		MaxAttempts:    cfg.Allocator.MaxAttempts,
		InitialBackoff: cfg.Allocator.InitialBackoff,
		MaxBackoff:     cfg.Allocator.MaxBackoff,
	}, appLogger, appMetrics)

	hub := feed.NewHub(visitRepo, cfg.Feed.BufferSize, appLogger, appMetrics)
	publisher := feed.NewBrokerPublisher(broker, appLogger, appMetrics)
	defer publisher.Close()

	visitSvc := visitService.NewService(patientRepo, visitRepo, allocatorSvc, publisher, auditSvc, appLogger)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(userRepo, jwtSvc, auditSvc)

	// Handlers
	h := handler.NewHandler(registry, map[string]handler.HealthCheck{
		"database": db.PingContext,
		"redis":    broker.Ping,
	})
	authH := authHandler.NewHandler(authSvc)
	visitH := visitHandler.NewHandler(visitSvc, hub)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	var rateLimit rate.Limit
	if cfg.RateLimit.Enabled {
		rateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}
	r := router.NewRouter(authMiddleware, authH, visitH, h, router.Config{
		RateLimit:     rateLimit,
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "frontdesk_http",
		Registry:      registry,
	})
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Deliver broker events to this instance's subscribers.
	bridge := feed.NewBridge(broker, hub, appLogger)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("feed bridge stopped")
		}
	}()

	cleanupWorker := worker.NewAuditCleanupWorker(auditRepo, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval, appLogger)
	go cleanupWorker.Start(ctx)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r.Engine(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// No write timeout: /visits/stream holds its connection open.
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
