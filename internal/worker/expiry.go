package worker

import (
	"context"
	"time"

	"github.com/soundbite/engagement/internal/pkg/distlock"
	"github.com/soundbite/engagement/internal/pkg/logger"
)

const (
	// DefaultExpiryScanInterval is how often running tests are checked
	// against their duration.
	DefaultExpiryScanInterval = 10 * time.Minute

	// ExpiryLockKey names the distributed lock guarding each run.
	ExpiryLockKey = "abtest-expiry"
)

// Concluder concludes every running test whose duration has elapsed.
type Concluder interface {
	ConcludeExpired(ctx context.Context, now time.Time) (int, error)
}

// ExpiryWorker auto-concludes A/B tests once they reach their end date.
type ExpiryWorker struct {
	tests    Concluder
	lock     distlock.DistLock
	interval time.Duration
	now      func() time.Time
}

// NewExpiryWorker creates an expiry worker. A non-positive interval falls
// back to DefaultExpiryScanInterval.
func NewExpiryWorker(tests Concluder, lock distlock.DistLock, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = DefaultExpiryScanInterval
	}
	return &ExpiryWorker{tests: tests, lock: lock, interval: interval, now: time.Now}
}

// Start begins the scan loop. It blocks until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	loop(ctx, "abtest_expiry", w.interval, w.lock, w.scan)
}

// RunOnce performs a single locked scan.
func (w *ExpiryWorker) RunOnce(ctx context.Context) bool {
	return runLocked(ctx, "abtest_expiry", w.lock, w.scan)
}

func (w *ExpiryWorker) scan(ctx context.Context) error {
	n, err := w.tests.ConcludeExpired(ctx, w.now().UTC())
	if n > 0 {
		logger.Info("concluded expired ab tests", "count", n)
	}
	return err
}
