package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler fires batch runs on a cron expression.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *slog.Logger
}

func NewScheduler(runner *Runner, spec string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger.With("component", "cron"),
	}

	_, err := s.cron.AddFunc(spec, func() {
		result, err := s.runner.RunBatch(context.Background())
		if err != nil {
			if errors.Is(err, ErrBatchRunning) {
				s.logger.Warn("skipping tick, previous batch still running")
				return
			}
			s.logger.Error("scheduled batch failed", "error", err)
			return
		}
		if result.Attempted > 0 {
			s.logger.Info("scheduled batch done",
				"attempted", result.Attempted, "succeeded", result.Succeeded, "failed", result.Failed)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register cron schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
