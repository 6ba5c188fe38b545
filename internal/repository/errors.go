// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios: a
// duplicate registration is a form error the user can recover from,
// while a missing session simply means the caller is not logged in.
package repository

import "errors"

// ErrUserExists is returned when a registration collides with an
// existing login name. Handlers surface this as a validation message
// on the form, never as a hard failure.
var ErrUserExists = errors.New("user id already exists")

// ErrSessionNotFound is returned when a session row does not exist, has
// expired or has been revoked. The authorization gate translates it
// into a challenge.
var ErrSessionNotFound = errors.New("session not found")
