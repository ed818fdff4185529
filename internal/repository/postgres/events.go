package postgres

import (
	"context"
	"database/sql"

	"github.com/soundbite/engagement/internal/domain"
)

// EventRepo implements ingest.Repository against PostgreSQL.
type EventRepo struct{ catalog }

// NewEventRepo creates a Postgres-backed event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{catalog{db: db}} }

func (r *EventRepo) InsertEvent(ctx context.Context, e *domain.EngagementEvent) error {
	var msPlayed sql.NullInt64
	if e.MsPlayed != nil {
		msPlayed = sql.NullInt64{Int64: *e.MsPlayed, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO engagement_events (id, user_id, content_id, variant_id, event_kind, ms_played, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, nullString(e.UserID), e.ContentID, nullString(e.VariantID), string(e.Kind),
		msPlayed, nullString(e.SessionID), e.CreatedAt)
	if err != nil {
		return storeErr("insert event", err)
	}
	return nil
}
