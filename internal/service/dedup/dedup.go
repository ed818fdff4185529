package dedup

import (
	"context"
	"time"

	"github.com/soundbite/engagement/internal/domain"
)

// Reason explains why an event was suppressed.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonDeduped   Reason = "deduped"
	ReasonThrottled Reason = "throttled"
)

const (
	playStartWindow = 60 * time.Second
	toggleWindow    = 3 * time.Second

	// RetentionWindow is how long an entry stays relevant: twice the
	// longest window.
	RetentionWindow = 2 * playStartWindow
)

// Key identifies a dedup slot. Anonymous events use an empty UserID.
type Key struct {
	UserID    string
	ContentID string
	Kind      domain.EventKind
}

func (k Key) String() string {
	return k.UserID + ":" + k.ContentID + ":" + string(k.Kind)
}

// Decision is the outcome of a check.
type Decision struct {
	Accept bool
	Reason Reason
}

var accept = Decision{Accept: true}

// Deduplicator is implemented by the memory and Redis backings.
type Deduplicator interface {
	// Check decides whether an event for key at now would be accepted.
	Check(ctx context.Context, key Key, now time.Time) (Decision, error)
	// Record stores now as the last-seen time for key.
	Record(ctx context.Context, key Key, now time.Time) error
	// Sweep purges entries older than RetentionWindow and returns how many
	// were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Policy returns the suppression window and reason for kind. ok is false
// for kinds that are never suppressed.
func Policy(kind domain.EventKind) (window time.Duration, reason Reason, ok bool) {
	switch kind {
	case domain.EventPlayStart:
		return playStartWindow, ReasonDeduped, true
	case domain.EventLike, domain.EventSave, domain.EventFollow:
		return toggleWindow, ReasonThrottled, true
	}
	return 0, ReasonNone, false
}

// decide applies the policy to a previous sighting.
func decide(kind domain.EventKind, last time.Time, seen bool, now time.Time) Decision {
	window, reason, ok := Policy(kind)
	if !ok || !seen {
		return accept
	}
	if now.Sub(last) < window {
		return Decision{Accept: false, Reason: reason}
	}
	return accept
}

// ShouldAccept checks key and refreshes its last-seen time. Kinds without
// a rule are accepted without touching the backing store.
func ShouldAccept(ctx context.Context, d Deduplicator, key Key, now time.Time) (Decision, error) {
	if _, _, ok := Policy(key.Kind); !ok {
		return accept, nil
	}
	dec, err := d.Check(ctx, key, now)
	if err != nil {
		return accept, err
	}
	if err := d.Record(ctx, key, now); err != nil {
		return dec, err
	}
	return dec, nil
}
