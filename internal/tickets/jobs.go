package tickets

import (
	"context"
	"time"

	"queuedesk/internal/hours"
	"queuedesk/pkg/logger"
)

// JobProcessor runs the two queue sweepers: the cut-off sweep cancels
// every waiting ticket once the office day has ended, and the hold
// sweep cancels tickets parked on hold past the timeout.
type JobProcessor struct {
	service  Service
	schedule *hours.Schedule
	config   *JobConfig
	logger   *logger.Logger
	done     chan struct{}
}

// JobConfig contains the sweep intervals.
type JobConfig struct {
	CutoffSweepInterval time.Duration
	HoldSweepInterval   time.Duration
}

// DefaultJobConfig returns default sweep intervals.
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		CutoffSweepInterval: 1 * time.Minute,
		HoldSweepInterval:   3 * time.Minute,
	}
}

// NewJobProcessor creates a sweeper over the given engine.
func NewJobProcessor(service Service, schedule *hours.Schedule, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		service:  service,
		schedule: schedule,
		config:   config,
		logger:   logger.GetDefault(),
		done:     make(chan struct{}),
	}
}

// Start starts both sweepers.
func (jp *JobProcessor) Start(ctx context.Context) {
	go jp.startCutoffSweeper(ctx)
	go jp.startHoldSweeper(ctx)

	jp.logger.Info("queue sweepers started",
		"cutoff_interval", jp.config.CutoffSweepInterval.String(),
		"hold_interval", jp.config.HoldSweepInterval.String(),
	)
}

// Stop stops both sweepers.
func (jp *JobProcessor) Stop() {
	close(jp.done)
	jp.logger.Info("queue sweepers stopped")
}

func (jp *JobProcessor) startCutoffSweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.config.CutoffSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.sweepCutoff(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweepCutoff cancels all waiting tickets in every office, but only
// once the closing minute has passed. It keeps firing for the rest of
// the day so late stragglers are caught too.
func (jp *JobProcessor) sweepCutoff(ctx context.Context) {
	if !jp.schedule.CutoffPassed() {
		return
	}

	for _, office := range Offices() {
		cancelled, err := jp.service.CancelAllWaiting(ctx, office, true)
		if err != nil {
			jp.logger.LogSweepError(ctx, "cutoff", office.String(), err)
			continue
		}
		if cancelled > 0 {
			jp.logger.LogSweep(ctx, "cutoff", office.String(), cancelled)
		}
	}
}

func (jp *JobProcessor) startHoldSweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.config.HoldSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.sweepHolds(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) sweepHolds(ctx context.Context) {
	for _, office := range Offices() {
		cancelled, err := jp.service.CancelExpiredHolds(ctx, office)
		if err != nil {
			jp.logger.LogSweepError(ctx, "hold-expiry", office.String(), err)
			continue
		}
		if cancelled > 0 {
			jp.logger.LogSweep(ctx, "hold-expiry", office.String(), cancelled)
		}
	}
}

// GetJobStatus returns the running sweep configuration for the health
// endpoint.
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"cutoff_sweep_interval": jp.config.CutoffSweepInterval.String(),
		"hold_sweep_interval":   jp.config.HoldSweepInterval.String(),
		"status":                "running",
	}
}
