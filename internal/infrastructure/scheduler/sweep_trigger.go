// Package scheduler runs the daily overdue sweep.
package scheduler

import (
	"context"
	"sync"
	"time"

	appbilling "github.com/geminiambiental/billing/internal/application/billing"
	"go.uber.org/zap"
)

// OverdueSweeper is the operation the trigger fires once per day
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (*appbilling.SweepResult, error)
}

// SweepTriggerConfig holds configuration for the sweep trigger
type SweepTriggerConfig struct {
	// SweepHour and SweepMinute define the daily run time (24h clock)
	SweepHour   int
	SweepMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultSweepTriggerConfig returns default sweep trigger configuration
func DefaultSweepTriggerConfig() SweepTriggerConfig {
	return SweepTriggerConfig{
		SweepHour:     0,
		SweepMinute:   5,
		CheckInterval: time.Minute,
	}
}

// SweepTrigger fires the overdue sweep once per calendar day
type SweepTrigger struct {
	config  SweepTriggerConfig
	sweeper OverdueSweeper
	logger  *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // date the sweep last ran, guards double runs
}

// NewSweepTrigger creates a new sweep trigger
func NewSweepTrigger(config SweepTriggerConfig, sweeper OverdueSweeper, logger *zap.Logger) *SweepTrigger {
	return &SweepTrigger{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start starts the sweep trigger
func (t *SweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Overdue sweep trigger started",
		zap.Int("sweep_hour", t.config.SweepHour),
		zap.Int("sweep_minute", t.config.SweepMinute),
		zap.Duration("check_interval", t.config.CheckInterval),
	)

	return nil
}

// Stop stops the sweep trigger
func (t *SweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Overdue sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically if it's time to run the sweep
func (t *SweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the sweep when the configured daily time is reached
func (t *SweepTrigger) checkAndTrigger(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	t.mu.Lock()
	if t.lastRunDate == currentDate {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	if now.Hour() != t.config.SweepHour || now.Minute() != t.config.SweepMinute {
		return
	}

	t.mu.Lock()
	t.lastRunDate = currentDate
	t.mu.Unlock()

	t.runSweep(ctx)
}

// runSweep executes one sweep, containing errors to the log
func (t *SweepTrigger) runSweep(ctx context.Context) {
	t.logger.Info("Triggering overdue sweep")

	result, err := t.sweeper.SweepOverdue(ctx)
	if err != nil {
		t.logger.Error("Overdue sweep failed", zap.Error(err))
		return
	}

	t.logger.Info("Overdue sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("marked", result.Marked),
	)
}
