package sqlite

import (
	"context"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) Create(ctx context.Context, s domain.Session) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	last := s.LastAccessed
	if last.IsZero() {
		last = created
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, last_accessed) VALUES (?, ?, ?)`,
		s.ID, created.UTC(), last.UTC())
	return err
}

func (r *sessionsRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, last_accessed FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.CreatedAt, &s.LastAccessed)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_accessed = ? WHERE id = ?`, at.UTC(), id)
	return err
}

func (r *sessionsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_accessed < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
