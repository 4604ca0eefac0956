package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
)

type principalsRepo struct {
	db dbtx
}

const principalColumns = `id, name, email, password_digest, salt, blocked, is_admin,
	twofactor_secret, twofactor_confirmed, created_at, updated_at`

func (r *principalsRepo) GetByID(ctx context.Context, id string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id)
	return r.scanAndLoad(ctx, row)
}

func (r *principalsRepo) GetByName(ctx context.Context, name string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE name = ? OR email = ?`, name, name)
	return r.scanAndLoad(ctx, row)
}

func (r *principalsRepo) ListBySessionID(ctx context.Context, sessionID string) ([]domain.Principal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+principalColumns+` FROM principals
		 WHERE id IN (SELECT principal_id FROM principal_sessions WHERE session_id = ?)`,
		sessionID)
	if err != nil {
		return nil, err
	}

	var out []domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the connection before the binding queries run; the pool
	// may hold only a single connection.
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.loadBindings(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *principalsRepo) GetByRefreshTokenFingerprint(ctx context.Context, fingerprint string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals
		 WHERE id = (SELECT principal_id FROM refresh_tokens
		             WHERE fingerprint = ? AND expires_at > ?)`,
		fingerprint, time.Now().UTC())
	return r.scanAndLoad(ctx, row)
}

func (r *principalsRepo) Create(ctx context.Context, p domain.Principal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principals
		 (id, name, email, password_digest, salt, blocked, is_admin, twofactor_secret, twofactor_confirmed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, mapStringNull(p.Email), p.PasswordDigest, p.Salt,
		p.Blocked, p.IsAdmin, mapOptionalString(p.TwoFactorSecret), p.TwoFactorConfirmed)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return errAlreadyExists(err)
	}
	return err
}

func (r *principalsRepo) UpdatePasswordDigest(ctx context.Context, principalID, digest, salt string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE principals SET password_digest = ?, salt = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, digest, salt, principalID)
	return err
}

func (r *principalsRepo) SetBlocked(ctx context.Context, principalID string, blocked bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE principals SET blocked = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		blocked, principalID)
	return err
}

func (r *principalsRepo) SetTwoFactor(ctx context.Context, principalID string, secret *string, confirmed bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE principals SET twofactor_secret = ?, twofactor_confirmed = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, mapOptionalString(secret), confirmed, principalID)
	return err
}

func (r *principalsRepo) BindSession(ctx context.Context, principalID, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principal_sessions (principal_id, session_id) VALUES (?, ?)
		 ON CONFLICT (principal_id, session_id) DO NOTHING`,
		principalID, sessionID)
	return err
}

func (r *principalsRepo) UnbindSession(ctx context.Context, principalID, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM principal_sessions WHERE principal_id = ? AND session_id = ?`,
		principalID, sessionID)
	return err
}

func (r *principalsRepo) UnbindSessionEverywhere(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM principal_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *principalsRepo) AddRefreshToken(ctx context.Context, principalID, fingerprint string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (fingerprint, principal_id, expires_at) VALUES (?, ?, ?)`,
		fingerprint, principalID, expiresAt.UTC())
	return err
}

func (r *principalsRepo) RemoveRefreshToken(ctx context.Context, fingerprint string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE fingerprint = ?`, fingerprint)
	return err
}

func (r *principalsRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *principalsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM principals`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row scanner) (domain.Principal, error) {
	var (
		p      domain.Principal
		email  sql.NullString
		secret sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.Name, &email, &p.PasswordDigest, &p.Salt, &p.Blocked, &p.IsAdmin,
		&secret, &p.TwoFactorConfirmed, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Principal{}, err
	}
	p.Email = mapNullString(email)
	p.TwoFactorSecret = mapNullStringPtr(secret)
	return p, nil
}

func (r *principalsRepo) scanAndLoad(ctx context.Context, row *sql.Row) (domain.Principal, error) {
	p, err := scanPrincipal(row)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	if err := r.loadBindings(ctx, &p); err != nil {
		return domain.Principal{}, err
	}
	return p, nil
}

// loadBindings fills the session-id and refresh-token collections.
func (r *principalsRepo) loadBindings(ctx context.Context, p *domain.Principal) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id FROM principal_sessions WHERE principal_id = ? ORDER BY session_id`,
		p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return err
		}
		p.SessionIDs = append(p.SessionIDs, sid)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	tokRows, err := r.db.QueryContext(ctx,
		`SELECT fingerprint FROM refresh_tokens WHERE principal_id = ? ORDER BY created_at`,
		p.ID)
	if err != nil {
		return err
	}
	defer tokRows.Close()
	for tokRows.Next() {
		var fp string
		if err := tokRows.Scan(&fp); err != nil {
			return err
		}
		p.RefreshTokens = append(p.RefreshTokens, fp)
	}
	return tokRows.Err()
}
