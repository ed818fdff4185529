package postgres

import (
	"context"
	"database/sql"

	"github.com/soundbite/engagement/internal/domain"
)

// catalog holds the content, variant and running-test lookups shared by
// several repositories.
type catalog struct{ db *sql.DB }

func (c catalog) GetContent(ctx context.Context, id string) (*domain.Content, error) {
	var (
		content     domain.Content
		publishedAt sql.NullTime
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, genre, status, published_at, view_count
		FROM content
		WHERE id = $1
	`, id).Scan(&content.ID, &content.OwnerID, &content.Title, &content.Genre,
		&content.Status, &publishedAt, &content.ViewCount)
	if err != nil {
		return nil, storeErr("get content", err)
	}
	if publishedAt.Valid {
		content.PublishedAt = &publishedAt.Time
	}
	return &content, nil
}

func (c catalog) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	var v domain.Variant
	err := c.db.QueryRowContext(ctx, `
		SELECT id, parent_content_id, label, is_active
		FROM content_variants
		WHERE id = $1
	`, id).Scan(&v.ID, &v.ParentContentID, &v.Label, &v.IsActive)
	if err != nil {
		return nil, storeErr("get variant", err)
	}
	return &v, nil
}

func (c catalog) ListActiveVariants(ctx context.Context, contentID string) ([]domain.Variant, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, parent_content_id, label, is_active
		FROM content_variants
		WHERE parent_content_id = $1 AND is_active = true
		ORDER BY label, id
	`, contentID)
	if err != nil {
		return nil, storeErr("list active variants", err)
	}
	defer rows.Close()

	var out []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ParentContentID, &v.Label, &v.IsActive); err != nil {
			return nil, storeErr("scan variant", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list active variants", err)
	}
	return out, nil
}

const abTestColumns = `id, content_id, variant_a_id, variant_b_id, metric_name, test_duration_days,
	started_at, concluded_at, sample_size_a, sample_size_b, winner_id, confidence_score`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanABTest(row rowScanner) (*domain.ABTest, error) {
	var (
		t           domain.ABTest
		concludedAt sql.NullTime
		winnerID    sql.NullString
	)
	err := row.Scan(&t.ID, &t.ContentID, &t.VariantAID, &t.VariantBID, &t.MetricName,
		&t.TestDurationDays, &t.StartedAt, &concludedAt, &t.SampleSizeA, &t.SampleSizeB,
		&winnerID, &t.ConfidenceScore)
	if err != nil {
		return nil, err
	}
	if concludedAt.Valid {
		t.ConcludedAt = &concludedAt.Time
	}
	t.WinnerID = stringPtr(winnerID)
	return &t, nil
}

func (c catalog) GetRunningTest(ctx context.Context, contentID string) (*domain.ABTest, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT `+abTestColumns+`
		FROM ab_tests
		WHERE content_id = $1 AND concluded_at IS NULL
	`, contentID)
	t, err := scanABTest(row)
	if err != nil {
		return nil, storeErr("get running test", err)
	}
	return t, nil
}
