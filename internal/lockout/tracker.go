// Package lockout tracks failed login attempts per user id and answers
// the threshold check that runs before credential verification. Once a
// user crosses the threshold, login attempts are rejected without even
// looking at the password until the counter resets.
//
// Two implementations exist: an in-process map for single-instance
// deployments and tests, and a Redis-backed counter for deployments
// where several instances must see the same counts.
package lockout

import "context"

// Tracker is the login-failure counter consulted by the login flow.
//
// IsLoginFailed reports whether the user has met or exceeded the
// failure threshold. RecordFailure must be called exactly once per
// failed verification; Reset after a successful one. Implementations
// must keep per-user increments linearizable so concurrent failures
// are never lost.
type Tracker interface {
	IsLoginFailed(ctx context.Context, userID string) (bool, error)
	RecordFailure(ctx context.Context, userID string) error
	Reset(ctx context.Context, userID string) error
}
