package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/metrics"
	"github.com/soundbite/engagement/internal/pkg/logger"
	"github.com/soundbite/engagement/internal/pkg/validate"
	"github.com/soundbite/engagement/internal/service/dedup"
	"github.com/soundbite/engagement/internal/tracking"
)

// TrackInput is the client payload for a single event.
type TrackInput struct {
	ContentID string  `json:"contentId" validate:"required,uuid"`
	EventKind string  `json:"eventKind" validate:"required"`
	VariantID *string `json:"variantId,omitempty" validate:"omitempty,uuid"`
	MsPlayed  *int64  `json:"msPlayed,omitempty" validate:"omitempty,min=0"`
	SessionID *string `json:"sessionId,omitempty" validate:"omitempty,max=128"`
}

// TrackResult reports what happened to a tracked event. A suppressed event
// is a successful no-op, not an error.
type TrackResult struct {
	OK        bool   `json:"ok"`
	Deduped   bool   `json:"deduped,omitempty"`
	Throttled bool   `json:"throttled,omitempty"`
	EventID   string `json:"-"`
}

// Service implements event ingestion. It is safe for concurrent use.
type Service struct {
	repo    Repository
	dedup   dedup.Deduplicator
	pub     tracking.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates an ingest service. pub and m may be nil.
func NewService(repo Repository, dd dedup.Deduplicator, pub tracking.Publisher, m *metrics.Metrics) *Service {
	if pub == nil {
		pub = tracking.NopPublisher{}
	}
	return &Service{repo: repo, dedup: dd, pub: pub, metrics: m, now: time.Now}
}

// Track validates, deduplicates and stores one event for the caller.
func (s *Service) Track(ctx context.Context, id *auth.Identity, in TrackInput) (*TrackResult, error) {
	if id == nil {
		return nil, domain.ErrUnauthenticated
	}
	if err := validate.Struct(in); err != nil {
		s.metrics.Event(in.EventKind, "rejected")
		return nil, err
	}
	kind, err := domain.ParseEventKind(in.EventKind)
	if err != nil {
		s.metrics.Event("unknown", "rejected")
		return nil, err
	}

	if err := s.checkReferences(ctx, in); err != nil {
		s.metrics.Event(string(kind), "rejected")
		return nil, err
	}

	now := s.now()
	key := dedup.Key{UserID: id.UserID, ContentID: in.ContentID, Kind: kind}
	dec, err := dedup.ShouldAccept(ctx, s.dedup, key, now)
	if err != nil {
		// Dedup errors fail open.
		logger.Warn("dedup check failed", "content_id", in.ContentID, "kind", kind, "error", err)
	}
	if !dec.Accept {
		s.metrics.Event(string(kind), string(dec.Reason))
		return &TrackResult{
			OK:        true,
			Deduped:   dec.Reason == dedup.ReasonDeduped,
			Throttled: dec.Reason == dedup.ReasonThrottled,
		}, nil
	}

	userID := id.UserID
	evt := &domain.EngagementEvent{
		UserID:    &userID,
		ContentID: in.ContentID,
		VariantID: in.VariantID,
		Kind:      kind,
		MsPlayed:  in.MsPlayed,
		SessionID: in.SessionID,
		CreatedAt: now,
	}
	if err := s.Emit(ctx, evt); err != nil {
		return nil, err
	}
	s.metrics.Event(string(kind), "accepted")
	return &TrackResult{OK: true, EventID: evt.ID}, nil
}

func (s *Service) checkReferences(ctx context.Context, in TrackInput) error {
	if _, err := s.repo.GetContent(ctx, in.ContentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrContentNotFound
		}
		return err
	}
	if in.VariantID == nil {
		return nil
	}
	v, err := s.repo.GetVariant(ctx, *in.VariantID)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrVariantMismatch
	}
	if err != nil {
		return err
	}
	if v.ParentContentID != in.ContentID {
		return ErrVariantMismatch
	}
	return nil
}

// Emit stores evt and hands it to the publisher. It fills in ID and
// CreatedAt when unset and does not deduplicate.
func (s *Service) Emit(ctx context.Context, evt *domain.EngagementEvent) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.now()
	}
	if err := s.repo.InsertEvent(ctx, evt); err != nil {
		logger.Error("insert event failed", "op", "ingest.emit", "content_id", evt.ContentID, "kind", evt.Kind, "error", err)
		return fmt.Errorf("emit %s event: %w", evt.Kind, err)
	}
	s.pub.Publish(ctx, evt)
	return nil
}
