package domain

import (
	"fmt"
	"time"
)

// EventKind enumerates the engagement signals a client can report.
type EventKind string

const (
	EventImpression EventKind = "impression"
	EventPlayStart  EventKind = "play_start"
	EventPlay3s     EventKind = "play_3s"
	EventPlay15s    EventKind = "play_15s"
	EventComplete   EventKind = "complete"
	EventReplay     EventKind = "replay"
	EventLike       EventKind = "like"
	EventSave       EventKind = "save"
	EventFollow     EventKind = "follow"
	EventCTAClick   EventKind = "cta_click"
	EventSkip       EventKind = "skip"
	EventShare      EventKind = "share"
	EventAllocation EventKind = "allocation"
)

var eventKinds = map[EventKind]struct{}{
	EventImpression: {}, EventPlayStart: {}, EventPlay3s: {}, EventPlay15s: {},
	EventComplete: {}, EventReplay: {}, EventLike: {}, EventSave: {},
	EventFollow: {}, EventCTAClick: {}, EventSkip: {}, EventShare: {},
	EventAllocation: {},
}

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	_, ok := eventKinds[k]
	return ok
}

// ParseEventKind converts s to an EventKind, rejecting unknown values.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unsupported eventKind %q", ErrValidation, s)
	}
	return k, nil
}

// EngagementEvent is a single immutable engagement record. Once written it is
// never updated or deleted by this service.
type EngagementEvent struct {
	ID        string    `json:"id" db:"id"`
	UserID    *string   `json:"userId" db:"user_id"`
	ContentID string    `json:"contentId" db:"content_id"`
	VariantID *string   `json:"variantId" db:"variant_id"`
	Kind      EventKind `json:"eventKind" db:"event_kind"`
	MsPlayed  *int64    `json:"msPlayed,omitempty" db:"ms_played"`
	SessionID *string   `json:"sessionId,omitempty" db:"session_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
