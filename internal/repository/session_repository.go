package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/notehub/accounts/internal/model"
)

// SessionRepo persists server-side sessions. The cookie token carries
// the row ID; a row that is missing, expired or revoked means the
// cookie is no longer good no matter what it says.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, role, issued_at, expires_at, persistent) VALUES (?,?,?,?,?,?)",
		s.ID, s.UserID, s.Role, s.IssuedAt, s.ExpiresAt, s.Persistent)
	return err
}

// Validate returns the session if it is live: present, not revoked and
// not past its expiry. Every other outcome is ErrSessionNotFound.
func (r *SessionRepo) Validate(ctx context.Context, id string) (model.Session, error) {
	var (
		s         model.Session
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, role, issued_at, expires_at, persistent, revoked_at FROM sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.UserID, &s.Role, &s.IssuedAt, &s.ExpiresAt, &s.Persistent, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrSessionNotFound
		}
		return model.Session{}, err
	}
	if revokedAt.Valid {
		return model.Session{}, ErrSessionNotFound
	}
	if time.Now().UTC().After(s.ExpiresAt) {
		return model.Session{}, ErrSessionNotFound
	}
	return s, nil
}

// Revoke marks a session as revoked. Revoking an already-revoked or
// unknown session is a no-op, which keeps logout idempotent.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE id=? AND revoked_at IS NULL",
		id)
	return err
}

// RevokeAllForUser revokes all of a user's active sessions.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
