package abtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/metrics"
	"github.com/soundbite/engagement/internal/pkg/logger"
	"github.com/soundbite/engagement/internal/pkg/validate"
)

// Options holds the decision threshold and duration bounds.
type Options struct {
	SignificanceLevel float64
	MinDurationDays   int
	MaxDurationDays   int
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{SignificanceLevel: 0.05, MinDurationDays: 1, MaxDurationDays: 90}
}

// StartInput is the payload for starting a test.
type StartInput struct {
	ContentID        string `json:"contentId" validate:"required,uuid"`
	VariantAID       string `json:"variantAId" validate:"required,uuid"`
	VariantBID       string `json:"variantBId" validate:"required,uuid,nefield=VariantAID"`
	MetricName       string `json:"metricName" validate:"required"`
	TestDurationDays int    `json:"testDurationDays" validate:"required"`
}

// VariantResult is one side of a test result.
type VariantResult struct {
	VariantID   string      `json:"variantId"`
	Label       string      `json:"label"`
	MetricValue float64     `json:"metricValue"`
	SampleSize  int         `json:"sampleSize"`
	Events      EventCounts `json:"events"`
}

// Result is the computed outcome of a test.
type Result struct {
	TestID        string        `json:"testId"`
	ContentID     string        `json:"contentId"`
	Metric        domain.Metric `json:"metric"`
	VariantA      VariantResult `json:"variantA"`
	VariantB      VariantResult `json:"variantB"`
	WinnerID      *string       `json:"winnerId"`
	PValue        float64       `json:"pValue"`
	ZScore        float64       `json:"zScore"`
	Confidence    float64       `json:"confidence"`
	IsSignificant bool          `json:"isSignificant"`
	ConcludedAt   *time.Time    `json:"concludedAt"`
}

// Service implements A/B test lifecycle and statistics.
type Service struct {
	repo     Repository
	archiver Archiver
	opts     Options
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates an A/B test service. archiver and m may be nil.
func NewService(repo Repository, archiver Archiver, opts Options, m *metrics.Metrics) *Service {
	return &Service{repo: repo, archiver: archiver, opts: opts, metrics: m, now: time.Now}
}

// Start opens a test between two active variants of content the caller owns.
func (s *Service) Start(ctx context.Context, id *auth.Identity, in StartInput) (*domain.ABTest, error) {
	if id == nil {
		return nil, domain.ErrUnauthenticated
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	metric, err := domain.ParseMetric(in.MetricName)
	if err != nil {
		return nil, err
	}
	if in.TestDurationDays < s.opts.MinDurationDays || in.TestDurationDays > s.opts.MaxDurationDays {
		return nil, fmt.Errorf("%w: testDurationDays must be between %d and %d",
			domain.ErrValidation, s.opts.MinDurationDays, s.opts.MaxDurationDays)
	}

	if err := s.checkOwner(ctx, id, in.ContentID, ErrContentNotFound); err != nil {
		return nil, err
	}

	active, err := s.repo.ListActiveVariants(ctx, in.ContentID)
	if err != nil {
		return nil, err
	}
	if len(active) < 2 {
		return nil, ErrNotEnoughVariants
	}
	if !containsVariant(active, in.VariantAID) || !containsVariant(active, in.VariantBID) {
		return nil, ErrVariantNotActive
	}

	if _, err := s.repo.GetRunningTest(ctx, in.ContentID); err == nil {
		return nil, ErrTestRunning
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	test := &domain.ABTest{
		ID:               uuid.NewString(),
		ContentID:        in.ContentID,
		VariantAID:       in.VariantAID,
		VariantBID:       in.VariantBID,
		MetricName:       metric,
		TestDurationDays: in.TestDurationDays,
		StartedAt:        s.now(),
	}
	if err := s.repo.CreateTest(ctx, test); err != nil {
		return nil, err
	}
	logger.Info("ab test started", "test_id", test.ID, "content_id", test.ContentID, "metric", metric)
	return test, nil
}

func containsVariant(vs []domain.Variant, id string) bool {
	for _, v := range vs {
		if v.ID == id {
			return true
		}
	}
	return false
}

// checkOwner maps a missing content row and a foreign owner to the same
// error so callers cannot probe for existence.
func (s *Service) checkOwner(ctx context.Context, id *auth.Identity, contentID string, notFound error) error {
	c, err := s.repo.GetContent(ctx, contentID)
	if errors.Is(err, domain.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}
	if c.OwnerID != id.UserID {
		return notFound
	}
	return nil
}

func (s *Service) loadOwnedTest(ctx context.Context, id *auth.Identity, testID string) (*domain.ABTest, error) {
	if id == nil {
		return nil, domain.ErrUnauthenticated
	}
	if _, err := uuid.Parse(testID); err != nil {
		return nil, fmt.Errorf("%w: testId must be a UUID", domain.ErrValidation)
	}
	test, err := s.repo.GetTest(ctx, testID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, id, test.ContentID, ErrTestNotFound); err != nil {
		return nil, err
	}
	return test, nil
}

// Preview computes the current result without concluding the test.
func (s *Service) Preview(ctx context.Context, id *auth.Identity, testID string) (*Result, error) {
	test, err := s.loadOwnedTest(ctx, id, testID)
	if err != nil {
		return nil, err
	}
	res, err := s.evaluate(ctx, test)
	if err != nil {
		return nil, err
	}
	if !test.Running() {
		// Show the recorded decision for a concluded test.
		res.WinnerID = test.WinnerID
		res.ConcludedAt = test.ConcludedAt
	}
	return res, nil
}

// Conclude computes and records the final result. The test must be
// running. If the update fails nothing is reported as concluded.
func (s *Service) Conclude(ctx context.Context, id *auth.Identity, testID string) (*Result, error) {
	test, err := s.loadOwnedTest(ctx, id, testID)
	if err != nil {
		return nil, err
	}
	return s.conclude(ctx, test)
}

// ConcludeExpired concludes every running test whose duration has elapsed.
// It returns how many tests it concluded.
func (s *Service) ConcludeExpired(ctx context.Context, now time.Time) (int, error) {
	tests, err := s.repo.ListExpiredTests(ctx, now)
	if err != nil {
		return 0, err
	}
	concluded := 0
	for i := range tests {
		if ctx.Err() != nil {
			return concluded, ctx.Err()
		}
		_, err := s.conclude(ctx, &tests[i])
		switch {
		case err == nil:
			concluded++
		case errors.Is(err, ErrAlreadyConcluded):
		default:
			logger.Error("conclude expired test failed", "test_id", tests[i].ID, "error", err)
		}
	}
	return concluded, nil
}

func (s *Service) conclude(ctx context.Context, test *domain.ABTest) (*Result, error) {
	if !test.Running() {
		return nil, ErrAlreadyConcluded
	}
	res, err := s.evaluate(ctx, test)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res.ConcludedAt = &now
	err = s.repo.Conclude(ctx, test.ID, domain.Conclusion{
		SampleSizeA:     res.VariantA.SampleSize,
		SampleSizeB:     res.VariantB.SampleSize,
		WinnerID:        res.WinnerID,
		ConfidenceScore: res.Confidence,
		ConcludedAt:     now,
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyConcluded) {
			logger.Error("conclude test update failed", "op", "abtest.conclude", "test_id", test.ID, "error", err)
		}
		return nil, err
	}

	s.metrics.Concluded(res.IsSignificant)
	logger.Info("ab test concluded", "test_id", test.ID, "significant", res.IsSignificant, "confidence", res.Confidence)

	if s.archiver != nil {
		if err := s.archiver.Save(ctx, res); err != nil {
			logger.Warn("ab test report not archived", "test_id", test.ID, "error", err)
		}
	}
	return res, nil
}

type side struct {
	variant *domain.Variant
	stats   VariantStats
}

func (s *Service) loadSide(ctx context.Context, variantID string, since time.Time) (side, error) {
	v, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return side{}, fmt.Errorf("variant %s: %w", variantID, err)
	}
	events, err := s.repo.ListVariantEvents(ctx, variantID, since)
	if err != nil {
		return side{}, fmt.Errorf("variant %s events: %w", variantID, err)
	}
	return side{variant: v, stats: Summarize(events)}, nil
}

// evaluate loads both variants concurrently and runs the z-test.
func (s *Service) evaluate(ctx context.Context, test *domain.ABTest) (*Result, error) {
	var a, b side
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.loadSide(gctx, test.VariantAID, test.StartedAt)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.loadSide(gctx, test.VariantBID, test.StartedAt)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := test.MetricName
	valA, valB := MetricValue(m, a.stats), MetricValue(m, b.stats)

	sig := insignificant
	if valA != valB {
		sig = ZTest(Proportion(m, a.stats), a.stats.SampleSize, Proportion(m, b.stats), b.stats.SampleSize, s.opts.SignificanceLevel)
	}

	res := &Result{
		TestID:        test.ID,
		ContentID:     test.ContentID,
		Metric:        m,
		VariantA:      variantResult(a, valA),
		VariantB:      variantResult(b, valB),
		PValue:        sig.PValue,
		ZScore:        sig.ZScore,
		Confidence:    sig.Confidence,
		IsSignificant: sig.Significant,
	}
	if sig.Significant {
		winner := test.VariantAID
		if valB > valA {
			winner = test.VariantBID
		}
		res.WinnerID = &winner
	}
	return res, nil
}

func variantResult(sd side, value float64) VariantResult {
	return VariantResult{
		VariantID:   sd.variant.ID,
		Label:       sd.variant.Label,
		MetricValue: round2(value),
		SampleSize:  sd.stats.SampleSize,
		Events:      sd.stats.Counts,
	}
}
