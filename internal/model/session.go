package model

import "time"

// DefaultRole is the role granted to every account at login. The
// original site has no role management UI; everyone is a "Users".
const DefaultRole = "Users"

// Session models a row in the `sessions` table. Sessions are the
// server-side half of the login state: the browser carries a signed
// cookie token referencing the row by ID, and the row records expiry
// and revocation so a logout invalidates the cookie immediately
// instead of waiting for it to age out.
//
// Fields:
//  ID         – UUID primary key, embedded in the cookie token as "sid".
//  UserID     – owner of the session (users.id).
//  Role       – role granted at issue time.
//  IssuedAt   – when the session was established.
//  ExpiresAt  – absolute expiry (issue time + 60 minutes).
//  Persistent – whether the cookie outlives the browser session.
//  RevokedAt  – when the session was revoked (null while active).
type Session struct {
	ID         string     // sessions.id
	UserID     uint64     // sessions.user_id
	Role       string     // sessions.role
	IssuedAt   time.Time  // sessions.issued_at
	ExpiresAt  time.Time  // sessions.expires_at
	Persistent bool       // sessions.persistent
	RevokedAt  *time.Time // sessions.revoked_at (nullable)
}
