// Package cache memoizes the expensive user-detail lookup behind the
// profile page. The pattern is cache-aside: the reader checks the
// store first, falls back to the repository on a miss and populates
// the store afterward. Entries live for a bounded TTL; there is no
// explicit eviction hook in this slice, so the TTL is what bounds
// staleness after a profile edit.
package cache

import (
	"context"

	"github.com/notehub/accounts/internal/model"
)

// Store is a TTL-bounded key-value store for user details, keyed by the
// internal numeric user id. The second return value of Get reports a
// hit; a miss is not an error.
type Store interface {
	Get(ctx context.Context, id uint64) (model.UserDetail, bool, error)
	Set(ctx context.Context, id uint64, d model.UserDetail) error
}

// Source is the underlying repository the cache falls back to.
// *repository.UserRepo satisfies it.
type Source interface {
	GetDetailByID(ctx context.Context, id uint64) (model.UserDetail, error)
}

// UserDetails is the cache-aside reader handlers call. A nil store
// disables caching and reads straight through.
type UserDetails struct {
	src   Source
	store Store
}

// NewUserDetails wires a detail source to a store.
func NewUserDetails(src Source, store Store) *UserDetails {
	return &UserDetails{src: src, store: store}
}

// GetUserDetail returns the detail record for id, hitting the
// repository at most once per TTL window. Store errors on the read
// path degrade to a repository fetch; store errors on the write path
// are dropped, since serving the fresh value matters more than
// caching it.
func (c *UserDetails) GetUserDetail(ctx context.Context, id uint64) (model.UserDetail, error) {
	if c.store != nil {
		if d, ok, err := c.store.Get(ctx, id); err == nil && ok {
			return d, nil
		}
	}
	d, err := c.src.GetDetailByID(ctx, id)
	if err != nil {
		return model.UserDetail{}, err
	}
	if c.store != nil {
		_ = c.store.Set(ctx, id, d)
	}
	return d, nil
}
