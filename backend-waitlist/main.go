package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Import pprof for profiling
	"os/signal"
	"syscall"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/di"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/handler"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/metrics"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/config"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/logger"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/middleware"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "waitlist-service",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Waitlist Service...", zap.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// Build dependency injection container
	container, err := di.NewContainer(ctx, &di.ContainerConfig{Config: cfg})
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
		return
	}
	defer container.Close()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName,
		telemetry.WithSkipPaths("/health", "/ready", "/metrics"),
		telemetry.WithRouteParams("queue_id", "customer_id", "business_id"),
	))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Replayed writes return the stored response when Redis is available
	var writeMiddleware []gin.HandlerFunc
	if container.Redis != nil {
		idempotencyConfig := middleware.DefaultIdempotencyConfig(container.Redis)
		idempotencyConfig.SkipPaths = []string{"/health", "/ready", "/metrics"}
		idempotencyConfig.RequireKey = false
		writeMiddleware = append(writeMiddleware, middleware.IdempotencyMiddleware(idempotencyConfig))
	}
	handler.RegisterRoutes(router, container.CustomerHandler, container.StaffHandler, writeMiddleware...)
	handler.RegisterAdminRoutes(router, container.AdminHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLog.Info("Waitlist Service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Waitlist.SweepEnabled {
		if err := container.Sweeper.Start(gctx); err != nil {
			appLog.Fatal("Failed to start no-show sweeper", zap.Error(err))
			return
		}
	}

	// pprof on a separate port, development only
	if cfg.IsDevelopment() {
		pprofAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1000)
		go func() {
			appLog.Info("pprof server listening", zap.String("addr", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				appLog.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	g.Go(func() error {
		<-gctx.Done()
		appLog.Info("Shutting down server...")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		container.Sweeper.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLog.Error("Server stopped with error", zap.Error(err))
		return
	}
	appLog.Info("Server exited gracefully")
}
