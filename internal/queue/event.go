// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditQueueName is the durable queue carrying authentication audit
// events. Publisher and consumer both declare it so startup order does
// not matter.
const AuditQueueName = "auth.audit"

// Audit event reasons for failed logins.
const (
	ReasonBadCredentials = "bad_credentials"
	ReasonLockedOut      = "locked_out"
)

// LoginAttemptEvent is published on every login attempt, successful or
// not. It carries enough information for downstream consumers to build
// a login history or alert on lockouts without querying the primary
// database.
type LoginAttemptEvent struct {
	UserID      string `json:"user_id"`
	IPAddress   string `json:"ip_address"`
	UserAgent   string `json:"user_agent"`
	Successful  bool   `json:"successful"`
	Reason      string `json:"reason,omitempty"`
	AttemptedAt string `json:"attempted_at"`
}

// UserRegisteredEvent is published when a new account is created.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	IPAddress    string `json:"ip_address"`
	RegisteredAt string `json:"registered_at"`
}
