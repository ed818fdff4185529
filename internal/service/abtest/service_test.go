package abtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/domain"
)

const (
	contentID = "0f8fad5b-d9cb-469f-a165-70867728950e"
	variantA  = "16fd2706-8baf-433b-82eb-8c7fada847da"
	variantB  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	variantC  = "886313e1-3b8a-5372-9b90-0c9aee199e5d"
	testID    = "6f1c29a4-8e0b-4b8e-9f43-3f8c2b8f9a10"
	ownerID   = "creator-1"
)

var started = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu          sync.Mutex
	content     map[string]*domain.Content
	variants    map[string]*domain.Variant
	tests       map[string]*domain.ABTest
	events      map[string][]domain.EngagementEvent
	concludeErr error
	eventsErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		content: map[string]*domain.Content{
			contentID: {ID: contentID, OwnerID: ownerID},
		},
		variants: map[string]*domain.Variant{
			variantA: {ID: variantA, ParentContentID: contentID, Label: "A", IsActive: true},
			variantB: {ID: variantB, ParentContentID: contentID, Label: "B", IsActive: true},
			variantC: {ID: variantC, ParentContentID: contentID, Label: "C", IsActive: false},
		},
		tests:  map[string]*domain.ABTest{},
		events: map[string][]domain.EngagementEvent{},
	}
}

func (m *mockRepo) GetContent(_ context.Context, id string) (*domain.Content, error) {
	if c, ok := m.content[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepo) GetVariant(_ context.Context, id string) (*domain.Variant, error) {
	if v, ok := m.variants[id]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepo) ListActiveVariants(_ context.Context, cid string) ([]domain.Variant, error) {
	var out []domain.Variant
	for _, id := range []string{variantA, variantB, variantC} {
		v := m.variants[id]
		if v != nil && v.IsActive && v.ParentContentID == cid {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockRepo) GetTest(_ context.Context, id string) (*domain.ABTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tests[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepo) GetRunningTest(_ context.Context, cid string) (*domain.ABTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tests {
		if t.ContentID == cid && t.Running() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepo) CreateTest(_ context.Context, t *domain.ABTest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tests[t.ID] = &cp
	return nil
}

func (m *mockRepo) ListExpiredTests(_ context.Context, now time.Time) ([]domain.ABTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ABTest
	for _, t := range m.tests {
		if t.Running() && !t.EndsAt().After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockRepo) Conclude(_ context.Context, id string, c domain.Conclusion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.concludeErr != nil {
		return m.concludeErr
	}
	t, ok := m.tests[id]
	if !ok || !t.Running() {
		return ErrAlreadyConcluded
	}
	at := c.ConcludedAt
	t.ConcludedAt = &at
	t.SampleSizeA, t.SampleSizeB = c.SampleSizeA, c.SampleSizeB
	t.WinnerID = c.WinnerID
	t.ConfidenceScore = c.ConfidenceScore
	return nil
}

func (m *mockRepo) ListVariantEvents(_ context.Context, variantID string, since time.Time) ([]domain.EngagementEvent, error) {
	if m.eventsErr != nil {
		return nil, m.eventsErr
	}
	var out []domain.EngagementEvent
	for _, e := range m.events[variantID] {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepo) addEvents(variantID string, evts []domain.EngagementEvent) {
	for i := range evts {
		evts[i].CreatedAt = started.Add(time.Hour)
		v := variantID
		evts[i].VariantID = &v
	}
	m.events[variantID] = append(m.events[variantID], evts...)
}

func (m *mockRepo) seedRunningTest(metric domain.Metric) {
	m.tests[testID] = &domain.ABTest{
		ID: testID, ContentID: contentID, VariantAID: variantA, VariantBID: variantB,
		MetricName: metric, TestDurationDays: 7, StartedAt: started,
	}
}

// seedExample loads 60% vs 40% completion over 80 users per side.
func (m *mockRepo) seedExample() {
	m.addEvents(variantA, append(events(domain.EventPlayStart, 100, 80, "a"), events(domain.EventComplete, 60, 80, "a")...))
	m.addEvents(variantB, append(events(domain.EventPlayStart, 100, 80, "b"), events(domain.EventComplete, 40, 80, "b")...))
}

type mockArchiver struct {
	saved []*Result
	err   error
}

func (a *mockArchiver) Save(_ context.Context, r *Result) error {
	a.saved = append(a.saved, r)
	return a.err
}

var owner = &auth.Identity{UserID: ownerID}

func newTestService(repo *mockRepo, arch Archiver) *Service {
	svc := NewService(repo, arch, DefaultOptions(), nil)
	svc.now = func() time.Time { return started.Add(8 * 24 * time.Hour) }
	return svc
}

func validStart() StartInput {
	return StartInput{
		ContentID: contentID, VariantAID: variantA, VariantBID: variantB,
		MetricName: "completion_rate", TestDurationDays: 7,
	}
}

func TestStart_CreatesRunningTest(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)

	test, err := svc.Start(context.Background(), owner, validStart())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !test.Running() || test.MetricName != domain.MetricCompletionRate || test.ID == "" {
		t.Errorf("unexpected test %+v", test)
	}
	if _, ok := repo.tests[test.ID]; !ok {
		t.Error("test was not persisted")
	}
}

func TestStart_Rejections(t *testing.T) {
	stranger := &auth.Identity{UserID: "someone-else"}
	tests := []struct {
		name   string
		id     *auth.Identity
		mutate func(*StartInput)
		setup  func(*mockRepo)
		want   error
	}{
		{"anonymous", nil, nil, nil, domain.ErrUnauthenticated},
		{"missing variant", owner, func(in *StartInput) { in.VariantBID = "" }, nil, domain.ErrValidation},
		{"same variant twice", owner, func(in *StartInput) { in.VariantBID = variantA }, nil, domain.ErrValidation},
		{"unknown metric", owner, func(in *StartInput) { in.MetricName = "plays" }, nil, domain.ErrValidation},
		{"duration too long", owner, func(in *StartInput) { in.TestDurationDays = 91 }, nil, domain.ErrValidation},
		{"not owner", stranger, nil, nil, ErrContentNotFound},
		{"unknown content", owner, func(in *StartInput) { in.ContentID = testID }, nil, ErrContentNotFound},
		{"inactive variant", owner, func(in *StartInput) { in.VariantBID = variantC }, nil, ErrVariantNotActive},
		{"one active variant", owner, nil, func(m *mockRepo) { m.variants[variantB].IsActive = false }, ErrNotEnoughVariants},
		{"already running", owner, nil, func(m *mockRepo) { m.seedRunningTest(domain.MetricCTAClickRate) }, ErrTestRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			if tt.setup != nil {
				tt.setup(repo)
			}
			in := validStart()
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			_, err := newTestService(repo, nil).Start(context.Background(), tt.id, in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConclude_ExampleScenario(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCompletionRate)
	repo.seedExample()
	arch := &mockArchiver{}
	svc := newTestService(repo, arch)

	res, err := svc.Conclude(context.Background(), owner, testID)
	if err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if !res.IsSignificant || res.WinnerID == nil || *res.WinnerID != variantA {
		t.Fatalf("expected variant A to win, got %+v", res)
	}
	if res.VariantA.MetricValue != 60 || res.VariantB.MetricValue != 40 {
		t.Errorf("unexpected metric values %v / %v", res.VariantA.MetricValue, res.VariantB.MetricValue)
	}
	if res.VariantA.SampleSize != 80 || res.VariantB.SampleSize != 80 {
		t.Errorf("unexpected sample sizes %d / %d", res.VariantA.SampleSize, res.VariantB.SampleSize)
	}
	if res.Confidence != 98.86 {
		t.Errorf("confidence = %v, want 98.86", res.Confidence)
	}

	stored := repo.tests[testID]
	if stored.Running() || stored.WinnerID == nil || *stored.WinnerID != variantA || stored.SampleSizeA != 80 {
		t.Errorf("conclusion not persisted: %+v", stored)
	}
	if len(arch.saved) != 1 {
		t.Errorf("expected report to be archived once, got %d", len(arch.saved))
	}
}

func TestConclude_SwappedRolesSwapWinner(t *testing.T) {
	repo := newMockRepo()
	repo.seedExample()
	repo.tests[testID] = &domain.ABTest{
		ID: testID, ContentID: contentID, VariantAID: variantB, VariantBID: variantA,
		MetricName: domain.MetricCompletionRate, TestDurationDays: 7, StartedAt: started,
	}

	res, err := newTestService(repo, nil).Conclude(context.Background(), owner, testID)
	if err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if res.WinnerID == nil || *res.WinnerID != variantA {
		t.Errorf("expected the 60%% variant to win regardless of side, got %+v", res.WinnerID)
	}
	if res.Confidence != 98.86 {
		t.Errorf("confidence = %v, want 98.86", res.Confidence)
	}
}

func TestConclude_IdenticalMetricsNoWinner(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricEngagementScore)
	repo.addEvents(variantA, events(domain.EventLike, 10, 10, "a"))
	repo.addEvents(variantB, append(events(domain.EventLike, 10, 5, "b"), events(domain.EventImpression, 10, 10, "b")...))

	res, err := newTestService(repo, nil).Conclude(context.Background(), owner, testID)
	if err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if res.IsSignificant || res.WinnerID != nil || res.PValue != 1 || res.Confidence != 0 {
		t.Errorf("identical scores must not produce a winner, got %+v", res)
	}
}

func TestConclude_ZeroSample(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCTAClickRate)
	repo.addEvents(variantA, append(events(domain.EventImpression, 50, 25, "a"), events(domain.EventCTAClick, 10, 10, "a")...))

	res, err := newTestService(repo, nil).Conclude(context.Background(), owner, testID)
	if err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if res.VariantB.SampleSize != 0 || res.Confidence != 0 || res.WinnerID != nil {
		t.Errorf("empty variant must yield no decision, got %+v", res)
	}
}

func TestConclude_Rejections(t *testing.T) {
	ctx := context.Background()

	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCompletionRate)
	svc := newTestService(repo, nil)

	if _, err := svc.Conclude(ctx, nil, testID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("anonymous: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Conclude(ctx, &auth.Identity{UserID: "intruder"}, testID); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("non-owner: expected ErrTestNotFound, got %v", err)
	}
	if _, err := svc.Conclude(ctx, owner, variantC); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("missing test: expected ErrTestNotFound, got %v", err)
	}
	if _, err := svc.Conclude(ctx, owner, "42"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad id: expected ErrValidation, got %v", err)
	}

	if _, err := svc.Conclude(ctx, owner, testID); err != nil {
		t.Fatalf("first conclude: %v", err)
	}
	if _, err := svc.Conclude(ctx, owner, testID); !errors.Is(err, ErrAlreadyConcluded) {
		t.Errorf("second conclude: expected ErrAlreadyConcluded, got %v", err)
	}
}

func TestConclude_UpdateFailureFailsOperation(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCompletionRate)
	repo.seedExample()
	repo.concludeErr = domain.ErrPersistence
	arch := &mockArchiver{}

	res, err := newTestService(repo, arch).Conclude(context.Background(), owner, testID)
	if !errors.Is(err, domain.ErrPersistence) || res != nil {
		t.Fatalf("expected persistence failure and no result, got %+v, %v", res, err)
	}
	if !repo.tests[testID].Running() {
		t.Error("test must stay running when the update fails")
	}
	if len(arch.saved) != 0 {
		t.Error("nothing should be archived when the update fails")
	}
}

func TestConclude_EventLoadFailure(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCompletionRate)
	repo.eventsErr = domain.ErrPersistence

	if _, err := newTestService(repo, nil).Conclude(context.Background(), owner, testID); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

func TestConclude_ArchiveFailureIsSwallowed(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCompletionRate)
	arch := &mockArchiver{err: errors.New("s3 unavailable")}

	if _, err := newTestService(repo, arch).Conclude(context.Background(), owner, testID); err != nil {
		t.Errorf("archive failure must not fail conclusion: %v", err)
	}
}

func TestPreview_DoesNotPersist(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCompletionRate)
	repo.seedExample()

	res, err := newTestService(repo, nil).Preview(context.Background(), owner, testID)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if res.ConcludedAt != nil || !res.IsSignificant {
		t.Errorf("unexpected preview %+v", res)
	}
	if !repo.tests[testID].Running() {
		t.Error("preview must not conclude the test")
	}
}

func TestConcludeExpired(t *testing.T) {
	repo := newMockRepo()
	repo.seedRunningTest(domain.MetricCompletionRate)
	repo.seedExample()
	svc := newTestService(repo, nil)

	n, err := svc.ConcludeExpired(context.Background(), started.Add(6*24*time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("before expiry: n=%d err=%v", n, err)
	}

	n, err = svc.ConcludeExpired(context.Background(), started.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("ConcludeExpired: %v", err)
	}
	if n != 1 || repo.tests[testID].Running() {
		t.Errorf("expected the expired test to be concluded, n=%d", n)
	}

	n, _ = svc.ConcludeExpired(context.Background(), started.Add(30*24*time.Hour))
	if n != 0 {
		t.Errorf("concluded tests must not be concluded again, n=%d", n)
	}
}
