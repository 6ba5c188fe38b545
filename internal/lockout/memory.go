package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/notehub/accounts/internal/config"
)

// failureState is one user's counter. The window slides: each failure
// stamps lastFailure, and the whole state is discarded once the window
// has passed without a new failure.
type failureState struct {
	count       int
	lastFailure time.Time
}

// MemoryTracker counts failures in a mutex-guarded map. Suitable for a
// single instance; counts are lost on restart, which only ever errs in
// the user's favor.
type MemoryTracker struct {
	cfg    config.LockoutConfig
	mu     sync.Mutex
	states map[string]*failureState
	now    func() time.Time
}

// NewMemoryTracker creates an in-process tracker.
func NewMemoryTracker(cfg config.LockoutConfig) *MemoryTracker {
	return &MemoryTracker{
		cfg:    cfg,
		states: make(map[string]*failureState),
		now:    time.Now,
	}
}

// IsLoginFailed reports whether userID has reached the threshold within
// the current window.
func (t *MemoryTracker) IsLoginFailed(ctx context.Context, userID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[userID]
	if !ok {
		return false, nil
	}
	if t.now().Sub(state.lastFailure) > t.cfg.Window {
		delete(t.states, userID)
		return false, nil
	}
	return state.count >= t.cfg.Threshold, nil
}

// RecordFailure increments the counter, starting a fresh window when
// the previous one has lapsed.
func (t *MemoryTracker) RecordFailure(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	state, ok := t.states[userID]
	if !ok || now.Sub(state.lastFailure) > t.cfg.Window {
		state = &failureState{}
		t.states[userID] = state
	}
	state.count++
	state.lastFailure = now
	return nil
}

// Reset clears the counter for userID.
func (t *MemoryTracker) Reset(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, userID)
	return nil
}
