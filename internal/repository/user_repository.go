package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/notehub/accounts/internal/model"
)

// UserRepo is the credential store: user id to password hash, plus the
// detail query behind the profile page.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with an already-hashed password and returns its
// ID. A unique-key violation on user_id maps to ErrUserExists so the
// pre-insert existence check and the insert itself cannot race into a
// duplicate row.
func (r *UserRepo) Create(ctx context.Context, userID, passwordHash string) (uint64, error) {
	userID = strings.TrimSpace(userID)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (user_id, password_hash) VALUES (?,?)",
		userID, passwordHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUserExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUserID fetches a user by login name.
func (r *UserRepo) GetByUserID(ctx context.Context, userID string) (model.User, error) {
	userID = strings.TrimSpace(userID)
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,password_hash,created_at,updated_at FROM users WHERE user_id=? LIMIT 1",
		userID).Scan(&u.ID, &u.UserID, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Exists reports whether a login name is already taken.
func (r *UserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE user_id=?",
		strings.TrimSpace(userID)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetDetailByID assembles the expanded profile record for a user. The
// joins and aggregates here are the expensive lookup the detail cache
// memoizes.
func (r *UserRepo) GetDetailByID(ctx context.Context, id uint64) (model.UserDetail, error) {
	var (
		d         model.UserDetail
		email     sql.NullString
		lastLogin sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT u.id, u.user_id,
		       COALESCE(d.name, u.user_id),
		       d.email,
		       (SELECT COUNT(1) FROM notes n WHERE n.user_id = u.id),
		       u.created_at,
		       (SELECT MAX(s.issued_at) FROM sessions s WHERE s.user_id = u.id)
		FROM users u
		LEFT JOIN user_details d ON d.user_id = u.id
		WHERE u.id = ?
		LIMIT 1`,
		id).Scan(&d.ID, &d.UserID, &d.Name, &email, &d.NoteCount, &d.JoinedAt, &lastLogin)
	if err != nil {
		return model.UserDetail{}, err
	}
	if email.Valid {
		d.Email = &email.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		d.LastLogin = &t
	}
	return d, nil
}
