package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"AutoBlog/internal/ports"
)

// ErrAlreadyRunning is returned by Start on a scheduler that was not stopped.
var ErrAlreadyRunning = errors.New("scheduler already running")

// IntervalScheduler runs a job immediately and then once per interval. Ticks
// that arrive while the job is still running are coalesced.
type IntervalScheduler struct {
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler; a non-positive interval means daily.
func NewIntervalScheduler(interval time.Duration, logger *slog.Logger) *IntervalScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IntervalScheduler{interval: interval, logger: logger.With("component", "scheduler")}
}

// Start launches the ticking goroutine. It returns immediately.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", "interval", s.interval)
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-runCtx.Done():
				s.logger.Info("scheduler stopped")
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine and waits for the running job, or until
// ctx is done.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
