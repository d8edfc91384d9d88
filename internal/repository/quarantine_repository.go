package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/koemail-admin/internal/model"
)

// QuarantineRepo gives users access to their own spam_quarantine rows.
// Every query is scoped by user_id.
type QuarantineRepo struct {
	db *sql.DB
}

func NewQuarantineRepo(db *sql.DB) *QuarantineRepo { return &QuarantineRepo{db: db} }

// ListForUser returns unreleased messages, newest first.
func (r *QuarantineRepo) ListForUser(ctx context.Context, userID int64) ([]model.QuarantinedMessage, error) {
	const q = `SELECT id, user_id, sender, subject, score, quarantine_date, released, released_at
	           FROM spam_quarantine
	           WHERE user_id = ? AND released = FALSE
	           ORDER BY quarantine_date DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.QuarantinedMessage{}
	for rows.Next() {
		var (
			m  model.QuarantinedMessage
			at sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Subject, &m.Score, &m.QuarantineDate, &m.Released, &at); err != nil {
			return nil, err
		}
		if at.Valid {
			t := at.Time
			m.ReleasedAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Release marks a message as released. A message that does not exist,
// belongs to someone else or was already released is ErrNotFound.
func (r *QuarantineRepo) Release(ctx context.Context, id, userID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE spam_quarantine SET released = TRUE, released_at = ? WHERE id = ? AND user_id = ? AND released = FALSE",
		at.UTC(), id, userID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}
