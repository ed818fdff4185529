package api

import (
	"context"
	"time"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/service/abtest"
	"github.com/soundbite/engagement/internal/service/allocation"
	"github.com/soundbite/engagement/internal/service/feed"
	"github.com/soundbite/engagement/internal/service/ingest"
)

// Tracker ingests engagement events.
type Tracker interface {
	Track(ctx context.Context, id *auth.Identity, in ingest.TrackInput) (*ingest.TrackResult, error)
}

// Allocator picks variants.
type Allocator interface {
	Allocate(ctx context.Context, id *auth.Identity, contentID string) (*allocation.Allocation, error)
}

// RailSelector builds feed rails.
type RailSelector interface {
	Rail(ctx context.Context, id *auth.Identity, q feed.RailQuery) (*feed.RailResult, error)
}

// ABTests manages the A/B test lifecycle.
type ABTests interface {
	Start(ctx context.Context, id *auth.Identity, in abtest.StartInput) (*domain.ABTest, error)
	Preview(ctx context.Context, id *auth.Identity, testID string) (*abtest.Result, error)
	Conclude(ctx context.Context, id *auth.Identity, testID string) (*abtest.Result, error)
}

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers holds the HTTP handlers and their service dependencies.
type Handlers struct {
	events  Tracker
	alloc   Allocator
	rails   RailSelector
	tests   ABTests
	db      Pinger
	started time.Time
}

// NewHandlers wires the handlers. db may be nil, in which case /health only
// reports liveness.
func NewHandlers(events Tracker, alloc Allocator, rails RailSelector, tests ABTests, db Pinger) *Handlers {
	return &Handlers{
		events:  events,
		alloc:   alloc,
		rails:   rails,
		tests:   tests,
		db:      db,
		started: time.Now(),
	}
}
