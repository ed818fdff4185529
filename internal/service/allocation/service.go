package allocation

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/rand"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/metrics"
	"github.com/soundbite/engagement/internal/pkg/logger"
	"github.com/soundbite/engagement/internal/pkg/validate"
)

// Allocation is the variant a viewer is served. VariantID is nil for the
// original.
type Allocation struct {
	VariantID *string `json:"variantId"`
	Label     string  `json:"label"`
}

type allocateInput struct {
	ContentID string `json:"contentId" validate:"required,uuid"`
}

// Service implements variant allocation.
type Service struct {
	repo    Repository
	events  Emitter
	metrics *metrics.Metrics
	intn    func(n int) int
}

// NewService creates an allocator. events may be nil to disable allocation
// logging.
func NewService(repo Repository, events Emitter, m *metrics.Metrics) *Service {
	return &Service{repo: repo, events: events, metrics: m, intn: rand.Intn}
}

// Allocate picks a variant of contentID for the caller. id is nil for
// anonymous viewers.
func (s *Service) Allocate(ctx context.Context, id *auth.Identity, contentID string) (*Allocation, error) {
	if err := validate.Struct(allocateInput{ContentID: contentID}); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetContent(ctx, contentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}

	variants, err := s.repo.ListActiveVariants(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		s.metrics.Allocation(true)
		return &Allocation{Label: domain.OriginalLabel}, nil
	}

	var chosen domain.Variant
	if id == nil {
		chosen = variants[s.intn(len(variants))]
	} else {
		testID, candidates := s.candidates(ctx, contentID, variants)
		chosen = candidates[bucket(id.UserID, contentID, testID, len(candidates))]
	}
	s.metrics.Allocation(false)

	if id != nil {
		s.logAllocation(ctx, id, contentID, chosen.ID)
	}

	variantID := chosen.ID
	return &Allocation{VariantID: &variantID, Label: chosen.Label}, nil
}

// candidates narrows the pool to the running test's pair when both of its
// variants are still active.
func (s *Service) candidates(ctx context.Context, contentID string, active []domain.Variant) (string, []domain.Variant) {
	test, err := s.repo.GetRunningTest(ctx, contentID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("running test lookup failed", "content_id", contentID, "error", err)
		}
		return "", active
	}

	var a, b *domain.Variant
	for i := range active {
		switch active[i].ID {
		case test.VariantAID:
			a = &active[i]
		case test.VariantBID:
			b = &active[i]
		}
	}
	if a == nil || b == nil {
		return test.ID, active
	}
	return test.ID, []domain.Variant{*a, *b}
}

// bucket maps a viewer to one of n slots, stable for the same inputs.
func bucket(userID, contentID, testID string, n int) int {
	sum := sha256.Sum256([]byte(userID + ":" + contentID + ":" + testID))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(n))
}

func (s *Service) logAllocation(ctx context.Context, id *auth.Identity, contentID, variantID string) {
	if s.events == nil {
		return
	}
	userID := id.UserID
	vid := variantID
	err := s.events.Emit(ctx, &domain.EngagementEvent{
		UserID:    &userID,
		ContentID: contentID,
		VariantID: &vid,
		Kind:      domain.EventAllocation,
	})
	if err != nil {
		logger.Warn("allocation event not recorded", "content_id", contentID, "variant_id", variantID, "error", err)
	}
}
