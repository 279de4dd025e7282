package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pmbright/synclet/internal/syncer"
	"github.com/pmbright/synclet/internal/util"
)

// SyncRunner is satisfied by syncer.Syncer.
type SyncRunner interface {
	Run(ctx context.Context, opts syncer.RunOptions) (*syncer.Result, error)
}

// Scheduler triggers sync runs on a fixed interval. Overlap is impossible:
// the run lock turns a tick that lands mid-run into a logged skip.
type Scheduler struct {
	runner   SyncRunner
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a new sync scheduler
func NewScheduler(runner SyncRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs a sync immediately, then on every tick until the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting sync scheduler", zap.Duration("interval", s.interval))

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sync scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	res, err := s.runner.Run(ctx, syncer.RunOptions{})
	switch {
	case errors.Is(err, syncer.ErrRunInProgress):
		s.logger.Warn("Skipping tick: another sync run is in progress")
	case errors.Is(err, context.Canceled):
		// Shutdown, nothing to report.
	case err != nil:
		s.logger.Error("Scheduled sync run failed", zap.Error(err))
	default:
		s.logger.Info("Scheduled sync run finished",
			zap.String("run_id", res.RunID),
			zap.String("outcome", res.Outcome),
			zap.Int("upserted", res.Upserted),
			zap.Int("failed", res.Failed))
	}
}
