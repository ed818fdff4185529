package feed

import (
	"context"
	"time"

	"github.com/soundbite/engagement/internal/domain"
)

// CandidateQuery bounds a rail query. Genre is optional.
type CandidateQuery struct {
	Genre string
	Limit int
	// Since is the lower bound on the publish or scoring window.
	Since time.Time
	// MaxViews is the underground view threshold.
	MaxViews int64
	// FollowerID restricts results to creators this user follows.
	FollowerID string
}

// Repository supplies ranked candidates for each rail. Results are in rank
// order and annotated with creator display names.
type Repository interface {
	Trending(ctx context.Context, q CandidateQuery) ([]domain.Snippet, error)
	NewReleases(ctx context.Context, q CandidateQuery) ([]domain.Snippet, error)
	Following(ctx context.Context, q CandidateQuery) ([]domain.Snippet, error)
	Underground(ctx context.Context, q CandidateQuery) ([]domain.Snippet, error)
}
