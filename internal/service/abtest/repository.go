package abtest

import (
	"context"
	"time"

	"github.com/soundbite/engagement/internal/domain"
)

// Repository is the storage the A/B test service needs. Lookups return
// domain.ErrNotFound for missing rows.
type Repository interface {
	GetContent(ctx context.Context, id string) (*domain.Content, error)
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
	ListActiveVariants(ctx context.Context, contentID string) ([]domain.Variant, error)

	GetTest(ctx context.Context, id string) (*domain.ABTest, error)
	GetRunningTest(ctx context.Context, contentID string) (*domain.ABTest, error)
	// CreateTest returns ErrTestRunning when another test for the content
	// is still running.
	CreateTest(ctx context.Context, t *domain.ABTest) error
	// ListExpiredTests returns running tests whose duration elapsed before now.
	ListExpiredTests(ctx context.Context, now time.Time) ([]domain.ABTest, error)
	// Conclude applies c to a running test. It returns ErrAlreadyConcluded
	// when the test was concluded first by someone else.
	Conclude(ctx context.Context, testID string, c domain.Conclusion) error

	// ListVariantEvents returns the variant's events created at or after since.
	ListVariantEvents(ctx context.Context, variantID string, since time.Time) ([]domain.EngagementEvent, error)
}

// Archiver stores concluded test reports outside the database.
type Archiver interface {
	Save(ctx context.Context, r *Result) error
}
