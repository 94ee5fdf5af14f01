package usecase

import (
	"context"
	"log/slog"
	"time"

	"AutoBlog/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	request  RunRequest
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs of req.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, req RunRequest, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, request: req, logger: logger.With("component", "schedule")}
}

// Start registers the pipeline with the provided scheduler. A failed run is
// logged and the next tick runs again.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled run triggered", "at", trigger, "mode", s.request.Mode)
		result, err := s.pipeline.Run(ctx, s.request)
		if err != nil {
			s.logger.Error("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "run_id", result.RunID, "success", result.SuccessCount, "total", result.TotalCount)
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
