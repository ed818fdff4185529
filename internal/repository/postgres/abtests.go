package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/service/abtest"
)

// ABTestRepo implements abtest.Repository against PostgreSQL.
type ABTestRepo struct{ catalog }

// NewABTestRepo creates a Postgres-backed A/B test repository.
func NewABTestRepo(db *sql.DB) *ABTestRepo { return &ABTestRepo{catalog{db: db}} }

func (r *ABTestRepo) GetTest(ctx context.Context, id string) (*domain.ABTest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+abTestColumns+` FROM ab_tests WHERE id = $1`, id)
	t, err := scanABTest(row)
	if err != nil {
		return nil, storeErr("get test", err)
	}
	return t, nil
}

// CreateTest relies on the partial unique index over running tests, so two
// concurrent starts for the same content cannot both succeed.
func (r *ABTestRepo) CreateTest(ctx context.Context, t *domain.ABTest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ab_tests (id, content_id, variant_a_id, variant_b_id, metric_name, test_duration_days, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.ContentID, t.VariantAID, t.VariantBID, string(t.MetricName), t.TestDurationDays, t.StartedAt)
	if isUniqueViolation(err) {
		return abtest.ErrTestRunning
	}
	if err != nil {
		return storeErr("create test", err)
	}
	return nil
}

func (r *ABTestRepo) ListExpiredTests(ctx context.Context, now time.Time) ([]domain.ABTest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+abTestColumns+`
		FROM ab_tests
		WHERE concluded_at IS NULL
		  AND started_at + make_interval(days => test_duration_days) <= $1
		ORDER BY started_at
	`, now)
	if err != nil {
		return nil, storeErr("list expired tests", err)
	}
	defer rows.Close()

	var out []domain.ABTest
	for rows.Next() {
		t, err := scanABTest(rows)
		if err != nil {
			return nil, storeErr("scan test", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list expired tests", err)
	}
	return out, nil
}

// Conclude is a guarded transition: it only touches rows that are still
// running.
func (r *ABTestRepo) Conclude(ctx context.Context, testID string, c domain.Conclusion) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ab_tests
		SET sample_size_a = $2, sample_size_b = $3, winner_id = $4,
		    confidence_score = $5, concluded_at = $6
		WHERE id = $1 AND concluded_at IS NULL
	`, testID, c.SampleSizeA, c.SampleSizeB, nullString(c.WinnerID), c.ConfidenceScore, c.ConcludedAt)
	if err != nil {
		return storeErr("conclude test", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("conclude test", err)
	}
	if n == 0 {
		return abtest.ErrAlreadyConcluded
	}
	return nil
}

func (r *ABTestRepo) ListVariantEvents(ctx context.Context, variantID string, since time.Time) ([]domain.EngagementEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, content_id, variant_id, event_kind, ms_played, session_id, created_at
		FROM engagement_events
		WHERE variant_id = $1 AND created_at >= $2
	`, variantID, since)
	if err != nil {
		return nil, storeErr("list variant events", err)
	}
	defer rows.Close()

	var out []domain.EngagementEvent
	for rows.Next() {
		var (
			e                          domain.EngagementEvent
			userID, variant, sessionID sql.NullString
			msPlayed                   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &userID, &e.ContentID, &variant, &e.Kind, &msPlayed, &sessionID, &e.CreatedAt); err != nil {
			return nil, storeErr("scan event", err)
		}
		e.UserID = stringPtr(userID)
		e.VariantID = stringPtr(variant)
		e.SessionID = stringPtr(sessionID)
		if msPlayed.Valid {
			v := msPlayed.Int64
			e.MsPlayed = &v
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list variant events", err)
	}
	return out, nil
}
