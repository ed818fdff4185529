package allocation

import (
	"context"

	"github.com/soundbite/engagement/internal/domain"
)

// Repository is the storage the allocator needs.
type Repository interface {
	GetContent(ctx context.Context, id string) (*domain.Content, error)
	// ListActiveVariants returns active variants ordered by label then id.
	ListActiveVariants(ctx context.Context, contentID string) ([]domain.Variant, error)
	// GetRunningTest returns domain.ErrNotFound when no test is running.
	GetRunningTest(ctx context.Context, contentID string) (*domain.ABTest, error)
}

// Emitter writes server-side events. Implemented by ingest.Service.
type Emitter interface {
	Emit(ctx context.Context, evt *domain.EngagementEvent) error
}
