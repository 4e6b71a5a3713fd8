package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/di"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/worker"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/config"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/logger"
	"go.uber.org/zap"
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
		ServiceName: "noshow-sweeper",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting No-Show Sweeper...")

	if cfg.Waitlist.StorageDriver == config.StorageDriverMemory {
		appLog.Warn("Memory storage is process-local; a standalone sweeper will only see its own queues")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, &di.ContainerConfig{Config: cfg})
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
		return
	}
	defer container.Close()

	if err := container.Sweeper.Start(ctx); err != nil {
		appLog.Fatal("Failed to start sweeper", zap.Error(err))
		return
	}
	appLog.Info("No-show sweeper started", zap.Duration("interval", cfg.Waitlist.SweepInterval))

	go reportStats(ctx, container.Sweeper, appLog)

	<-ctx.Done()
	appLog.Info("Shutting down no-show sweeper...")
	container.Sweeper.Stop()
	appLog.Info("No-show sweeper stopped")
}

// reportStats periodically logs sweeper totals
func reportStats(ctx context.Context, s *worker.NoShowSweeper, log *logger.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.GetStats()
			log.Info("Sweeper stats",
				zap.Int64("total_expired", stats.TotalExpired),
				zap.Int64("total_failed", stats.TotalFailed),
				zap.Int("last_expired", stats.LastExpiredCount),
				zap.Time("last_scan", stats.LastScanTime),
			)
		}
	}
}
