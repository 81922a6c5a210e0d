package usecase

import (
	"context"
	"log/slog"
	"time"

	"MentionScanner/internal/ports"
)

// Scheduler wires the interval driver with the collection pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring collection runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler. Overlapping
// runs are safe: de-duplication rests on the store's atomic admit.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		summary, err := s.pipeline.Collect(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("scheduled collection failed", "trigger", trigger, "error", err)
			}
			return
		}
		if s.logger != nil {
			s.logger.Info("scheduled collection finished",
				"trigger", trigger,
				"found", summary.Found,
				"stored", summary.Stored,
				"emailed", summary.Emailed,
			)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
