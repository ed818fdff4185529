package postgres

import (
	"context"
	"database/sql"

	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/service/feed"
)

// FeedRepo implements feed.Repository against PostgreSQL.
type FeedRepo struct{ db *sql.DB }

// NewFeedRepo creates a Postgres-backed feed repository.
func NewFeedRepo(db *sql.DB) *FeedRepo { return &FeedRepo{db: db} }

const snippetColumns = `c.id, c.title, c.genre, c.owner_id, cr.display_name, c.audio_url,
	COALESCE(c.cover_url, ''), c.published_at, c.view_count`

// Trending reads the decayed score view refreshed by the worker.
func (r *FeedRepo) Trending(ctx context.Context, q feed.CandidateQuery) ([]domain.Snippet, error) {
	return r.query(ctx, "trending rail", `
		SELECT `+snippetColumns+`, t.score
		FROM content_trending t
		JOIN content c ON c.id = t.content_id
		JOIN creators cr ON cr.id = c.owner_id
		WHERE c.status = 'approved'
		  AND t.last_event_at >= $1
		  AND ($2::text = '' OR c.genre = $2)
		ORDER BY t.score DESC, c.id
		LIMIT $3
	`, q.Since, q.Genre, q.Limit)
}

func (r *FeedRepo) NewReleases(ctx context.Context, q feed.CandidateQuery) ([]domain.Snippet, error) {
	return r.query(ctx, "new rail", `
		SELECT `+snippetColumns+`, 0::float8
		FROM content c
		JOIN creators cr ON cr.id = c.owner_id
		WHERE c.status = 'approved'
		  AND c.published_at >= $1
		  AND ($2::text = '' OR c.genre = $2)
		ORDER BY c.published_at DESC, c.id
		LIMIT $3
	`, q.Since, q.Genre, q.Limit)
}

func (r *FeedRepo) Following(ctx context.Context, q feed.CandidateQuery) ([]domain.Snippet, error) {
	return r.query(ctx, "following rail", `
		SELECT `+snippetColumns+`, 0::float8
		FROM content c
		JOIN creators cr ON cr.id = c.owner_id
		JOIN follows f ON f.creator_id = c.owner_id AND f.follower_id = $1
		WHERE c.status = 'approved'
		  AND ($2::text = '' OR c.genre = $2)
		ORDER BY c.published_at DESC NULLS LAST, c.id
		LIMIT $3
	`, q.FollowerID, q.Genre, q.Limit)
}

func (r *FeedRepo) Underground(ctx context.Context, q feed.CandidateQuery) ([]domain.Snippet, error) {
	return r.query(ctx, "underground rail", `
		SELECT `+snippetColumns+`, 0::float8
		FROM content c
		JOIN creators cr ON cr.id = c.owner_id
		WHERE c.status = 'approved'
		  AND (c.published_at >= $1 OR c.view_count < $2)
		  AND ($3::text = '' OR c.genre = $3)
		ORDER BY c.published_at DESC NULLS LAST, c.id
		LIMIT $4
	`, q.Since, q.MaxViews, q.Genre, q.Limit)
}

func (r *FeedRepo) query(ctx context.Context, op, query string, args ...any) ([]domain.Snippet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := []domain.Snippet{}
	for rows.Next() {
		var (
			s           domain.Snippet
			publishedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Genre, &s.CreatorID, &s.CreatorDisplayName,
			&s.AudioURL, &s.CoverURL, &publishedAt, &s.ViewCount, &s.Score); err != nil {
			return nil, storeErr(op, err)
		}
		if publishedAt.Valid {
			s.PublishedAt = &publishedAt.Time
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

// RefreshTrending rebuilds the trending view without blocking readers.
func (r *FeedRepo) RefreshTrending(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY content_trending`); err != nil {
		return storeErr("refresh trending", err)
	}
	return nil
}
