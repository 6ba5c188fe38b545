package model

import "time"

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column in the database. The json tags
// are omitted here because these structs are used internally by the
// repository layer; handlers define separate view types where needed.
//
// Fields:
//  ID           – primary key identifier of the user.
//  UserID       – unique login name chosen at registration.
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	UserID       string    // users.user_id
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// UserDetail is the expanded profile record returned by the detail
// query (display name, contact fields and counters that take several
// joins to assemble). It is the value memoized by the user-detail
// cache, hence the json tags: the Redis backend stores it serialized.
type UserDetail struct {
	ID        uint64     `json:"id"`         // users.id
	UserID    string     `json:"user_id"`    // users.user_id
	Name      string     `json:"name"`       // user_details.name
	Email     *string    `json:"email"`      // user_details.email (nullable)
	NoteCount int        `json:"note_count"` // aggregate over notes
	JoinedAt  time.Time  `json:"joined_at"`  // users.created_at
	LastLogin *time.Time `json:"last_login"` // latest sessions.issued_at (nullable)
}
