package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/metrics"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/service"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// NoShowSweeperConfig contains configuration for the no-show sweeper
type NoShowSweeperConfig struct {
	// ScanInterval is the interval between sweeps
	ScanInterval time.Duration
	// Clock drives the sweep ticker; defaults to the real clock
	Clock clockwork.Clock
}

// DefaultNoShowSweeperConfig returns default configuration
func DefaultNoShowSweeperConfig() *NoShowSweeperConfig {
	return &NoShowSweeperConfig{
		ScanInterval: 30 * time.Second,
	}
}

// SweepResult summarises one sweep
type SweepResult struct {
	QueuesScanned int
	Expired       int
	Skipped       int
	Failed        int
}

// NoShowSweeper expires called customers who never showed up
type NoShowSweeper struct {
	expirer service.NoShowExpirer
	config  *NoShowSweeperConfig
	clock   clockwork.Clock
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalExpired  int64
	totalFailed   int64
	lastScanTime  time.Time
	lastSweepSize int
}

// NewNoShowSweeper creates a new no-show sweeper
func NewNoShowSweeper(expirer service.NoShowExpirer, config *NoShowSweeperConfig) *NoShowSweeper {
	if config == nil {
		config = DefaultNoShowSweeperConfig()
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultNoShowSweeperConfig().ScanInterval
	}
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &NoShowSweeper{
		expirer: expirer,
		config:  config,
		clock:   clock,
		log:     logger.Get(),
	}
}

// Start starts the sweeper loop
func (w *NoShowSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("no-show sweeper already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.log.Info("Starting no-show sweeper", zap.Duration("interval", w.config.ScanInterval))

	w.wg.Add(1)
	go w.run(ctx, stopCh)

	return nil
}

// Stop stops the sweeper and waits for an in-flight sweep to finish
func (w *NoShowSweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.log.Info("Stopping no-show sweeper")
	w.wg.Wait()
	w.log.Info("No-show sweeper stopped")
}

func (w *NoShowSweeper) run(ctx context.Context, stopCh <-chan struct{}) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.SweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.Chan():
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce visits every active queue and expires overdue called customers.
// A failure on one queue or customer never stops the rest of the sweep.
func (w *NoShowSweeper) SweepOnce(ctx context.Context) SweepResult {
	var result SweepResult

	queueIDs, err := w.expirer.ActiveQueueIDs(ctx)
	if err != nil {
		w.log.Error("Failed to list active queues", zap.Error(err))
		return result
	}

	for _, queueID := range queueIDs {
		if ctx.Err() != nil {
			break
		}
		result.QueuesScanned++

		candidates, err := w.expirer.NoShowCandidates(ctx, queueID)
		if err != nil {
			result.Failed++
			metrics.SweepFailed()
			w.log.Warn("Failed to scan queue for no-shows", zap.String("queue_id", queueID), zap.Error(err))
			continue
		}

		for _, customerID := range candidates {
			expired, err := w.expirer.ExpireCustomer(ctx, queueID, customerID)
			switch {
			case err != nil:
				result.Failed++
				metrics.SweepFailed()
				w.log.Warn("Failed to expire customer",
					zap.String("queue_id", queueID),
					zap.String("customer_id", customerID),
					zap.Error(err),
				)
			case expired:
				result.Expired++
				metrics.NoShowExpired()
				w.log.Info("Customer marked as no-show",
					zap.String("queue_id", queueID),
					zap.String("customer_id", customerID),
				)
			default:
				result.Skipped++
			}
		}
	}

	w.mu.Lock()
	w.lastScanTime = w.clock.Now()
	w.lastSweepSize = result.Expired
	w.totalExpired += int64(result.Expired)
	w.totalFailed += int64(result.Failed)
	w.mu.Unlock()

	return result
}

// GetStats returns sweeper statistics
func (w *NoShowSweeper) GetStats() *NoShowSweeperStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &NoShowSweeperStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		TotalFailed:      w.totalFailed,
		LastScanTime:     w.lastScanTime,
		LastExpiredCount: w.lastSweepSize,
	}
}

// NoShowSweeperStats contains sweeper statistics
type NoShowSweeperStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	TotalFailed      int64     `json:"total_failed"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}
