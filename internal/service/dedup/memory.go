package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/soundbite/engagement/internal/pkg/logger"
)

// lazySweepEvery bounds how often Record may scan the map once it is over
// its size limit.
const lazySweepEvery = time.Second

// Memory is the process-local backing. It is safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	seen       map[Key]time.Time
	maxEntries int
	interval   time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

// NewMemory creates an in-memory deduplicator. Record sweeps lazily, at most
// once per second, while the map holds more than maxEntries keys; Run sweeps
// every interval.
func NewMemory(maxEntries int, interval time.Duration) *Memory {
	return &Memory{
		seen:       make(map[Key]time.Time),
		maxEntries: maxEntries,
		interval:   interval,
		now:        time.Now,
	}
}

// Check implements Deduplicator.
func (m *Memory) Check(_ context.Context, key Key, now time.Time) (Decision, error) {
	m.mu.Lock()
	last, ok := m.seen[key]
	m.mu.Unlock()
	return decide(key.Kind, last, ok, now), nil
}

// Record implements Deduplicator.
func (m *Memory) Record(_ context.Context, key Key, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[key] = now
	if m.maxEntries > 0 && len(m.seen) > m.maxEntries && now.Sub(m.lastSweep) >= lazySweepEvery {
		m.sweepLocked(now)
	}
	return nil
}

// Sweep implements Deduplicator.
func (m *Memory) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now), nil
}

func (m *Memory) sweepLocked(now time.Time) int {
	m.lastSweep = now
	cutoff := now.Add(-RetentionWindow)
	removed := 0
	for k, v := range m.seen {
		if v.Before(cutoff) {
			delete(m.seen, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

// Run sweeps on a ticker until ctx is cancelled.
func (m *Memory) Run(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, _ := m.Sweep(ctx, m.now())
			if n > 0 {
				logger.Debug("dedup sweep", "removed", n, "remaining", m.Len())
			}
		}
	}
}
