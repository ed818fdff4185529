package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/metrics"
)

// Options tunes rail windows and limits.
type Options struct {
	TrendingWindow      time.Duration
	NewWindow           time.Duration
	UndergroundMaxViews int64
	DiversityCap        int
	DefaultLimit        int
	MaxLimit            int
	CandidateMultiplier int
}

// DefaultOptions returns the production rail settings.
func DefaultOptions() Options {
	return Options{
		TrendingWindow:      48 * time.Hour,
		NewWindow:           7 * 24 * time.Hour,
		UndergroundMaxViews: 500,
		DiversityCap:        2,
		DefaultLimit:        20,
		MaxLimit:            50,
		CandidateMultiplier: 3,
	}
}

// RailQuery is a rail request. Limit 0 selects the default.
type RailQuery struct {
	Rail  string `json:"rail"`
	Limit int    `json:"limit,omitempty"`
	Genre string `json:"genre,omitempty"`
}

// RailResult is an ordered rail.
type RailResult struct {
	Rail     domain.Rail      `json:"rail"`
	Snippets []domain.Snippet `json:"snippets"`
}

// Service implements the feed selector.
type Service struct {
	repo    Repository
	opts    Options
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a feed service.
func NewService(repo Repository, opts Options, m *metrics.Metrics) *Service {
	return &Service{repo: repo, opts: opts, metrics: m, now: time.Now}
}

// Rail returns up to q.Limit snippets for q.Rail. id may be nil except for
// the following rail.
func (s *Service) Rail(ctx context.Context, id *auth.Identity, q RailQuery) (*RailResult, error) {
	rail, err := domain.ParseRail(q.Rail)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	if limit < 1 || limit > s.opts.MaxLimit {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, s.opts.MaxLimit)
	}
	if rail == domain.RailFollowing && id == nil {
		return nil, ErrFollowingAuth
	}

	now := s.now()
	cq := CandidateQuery{
		Genre: strings.TrimSpace(q.Genre),
		Limit: limit * s.opts.CandidateMultiplier,
	}

	var candidates []domain.Snippet
	switch rail {
	case domain.RailForYou:
		cq.Since = now.Add(-s.opts.TrendingWindow)
		candidates, err = s.repo.Trending(ctx, cq)
	case domain.RailNewThisWeek:
		cq.Since = now.Add(-s.opts.NewWindow)
		candidates, err = s.repo.NewReleases(ctx, cq)
	case domain.RailFollowing:
		cq.FollowerID = id.UserID
		candidates, err = s.repo.Following(ctx, cq)
	case domain.RailUnderground:
		cq.Since = now.Add(-s.opts.NewWindow)
		cq.MaxViews = s.opts.UndergroundMaxViews
		candidates, err = s.repo.Underground(ctx, cq)
	}
	if err != nil {
		return nil, fmt.Errorf("%s rail: %w", rail, err)
	}

	snippets := ApplyDiversityCap(candidates, limit, s.opts.DiversityCap)
	s.metrics.Rail(string(rail), len(snippets))
	return &RailResult{Rail: rail, Snippets: snippets}, nil
}

// ApplyDiversityCap walks items in rank order and keeps each one only while
// its creator has fewer than maxPerCreator kept items. It stops at limit.
func ApplyDiversityCap(items []domain.Snippet, limit, maxPerCreator int) []domain.Snippet {
	out := make([]domain.Snippet, 0, min(limit, len(items)))
	perCreator := make(map[string]int)
	for _, it := range items {
		if len(out) >= limit {
			break
		}
		if perCreator[it.CreatorID] >= maxPerCreator {
			continue
		}
		perCreator[it.CreatorID]++
		out = append(out, it)
	}
	return out
}
