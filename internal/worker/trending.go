package worker

import (
	"context"
	"time"

	"github.com/soundbite/engagement/internal/pkg/distlock"
)

const (
	// DefaultTrendingRefreshInterval is how often the trending view is rebuilt.
	DefaultTrendingRefreshInterval = 5 * time.Minute

	// TrendingLockKey names the distributed lock guarding each run.
	TrendingLockKey = "trending-refresh"
)

// TrendingRefresher rebuilds the decayed-score view behind the for_you rail.
type TrendingRefresher interface {
	RefreshTrending(ctx context.Context) error
}

// TrendingWorker periodically refreshes trending scores.
type TrendingWorker struct {
	repo     TrendingRefresher
	lock     distlock.DistLock
	interval time.Duration
}

// NewTrendingWorker creates a trending refresher. A non-positive interval
// falls back to DefaultTrendingRefreshInterval.
func NewTrendingWorker(repo TrendingRefresher, lock distlock.DistLock, interval time.Duration) *TrendingWorker {
	if interval <= 0 {
		interval = DefaultTrendingRefreshInterval
	}
	return &TrendingWorker{repo: repo, lock: lock, interval: interval}
}

// Start begins the refresh loop. It blocks until ctx is cancelled.
func (w *TrendingWorker) Start(ctx context.Context) {
	loop(ctx, "trending_refresh", w.interval, w.lock, w.refresh)
}

// RunOnce performs a single locked refresh. It reports whether the lock was
// acquired.
func (w *TrendingWorker) RunOnce(ctx context.Context) bool {
	return runLocked(ctx, "trending_refresh", w.lock, w.refresh)
}

func (w *TrendingWorker) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return w.repo.RefreshTrending(ctx)
}
