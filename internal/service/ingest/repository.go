package ingest

import (
	"context"

	"github.com/soundbite/engagement/internal/domain"
)

// Repository is the storage the ingest service needs. Lookups return
// domain.ErrNotFound for missing rows.
type Repository interface {
	GetContent(ctx context.Context, id string) (*domain.Content, error)
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
	InsertEvent(ctx context.Context, evt *domain.EngagementEvent) error
}
