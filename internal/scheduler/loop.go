package scheduler

import (
	"context"
	"errors"
	"time"
)

// Start runs a cycle immediately and then every Interval until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started", "interval", s.cfg.Interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runScheduled()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled()
		}
	}
}

func (s *Scheduler) runScheduled() {
	_, err := s.RunCycle(s.ctx, RunOptions{})
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		s.logger.Debug("skipping scheduled cycle", "reason", err)
	case errors.Is(err, context.Canceled):
		s.logger.Info("scheduled cycle cancelled")
	default:
		s.logger.Error("scheduled cycle failed", "error", err)
	}
}
