// Package worker runs the periodic background jobs of the engagement
// service. Every job runs once on start and then on a ticker, and each run
// is guarded by a distributed lock so only one replica does the work.
package worker

import (
	"context"
	"time"

	"github.com/soundbite/engagement/internal/pkg/distlock"
	"github.com/soundbite/engagement/internal/pkg/logger"
)

// job is one tick of a worker. It reports an error only for logging.
type job func(ctx context.Context) error

// loop runs fn immediately and then every interval until ctx is cancelled.
func loop(ctx context.Context, name string, interval time.Duration, lock distlock.DistLock, fn job) {
	logger.Info("worker starting", "worker", name, "interval", interval.String())

	runLocked(ctx, name, lock, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping", "worker", name)
			return
		case <-ticker.C:
			runLocked(ctx, name, lock, fn)
		}
	}
}

// runLocked executes fn while holding lock. It returns false when another
// replica holds the lock or the lock backend failed.
func runLocked(ctx context.Context, name string, lock distlock.DistLock, fn job) bool {
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Error("acquire worker lock", "worker", name, "error", err)
		return false
	}
	if !acquired {
		logger.Debug("worker lock held elsewhere, skipping", "worker", name)
		return false
	}
	defer func() {
		// Release on a fresh context so shutdown does not leak the lock.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(rctx); err != nil {
			logger.Warn("release worker lock", "worker", name, "error", err)
		}
	}()

	start := time.Now()
	if err := fn(ctx); err != nil {
		logger.Error("worker run failed", "worker", name, "error", err)
		return true
	}
	logger.Debug("worker run completed", "worker", name, "took", time.Since(start).Round(time.Millisecond).String())
	return true
}
