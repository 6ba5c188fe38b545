package cache

import (
	"context"
	"sync"
	"time"

	"github.com/notehub/accounts/internal/config"
	"github.com/notehub/accounts/internal/model"
)

type memoryEntry struct {
	detail   model.UserDetail
	cachedAt time.Time
}

// MemoryStore keeps detail entries in a mutex-guarded map. Expired
// entries are dropped lazily on read.
type MemoryStore struct {
	cfg     config.DetailCacheConfig
	mu      sync.RWMutex
	entries map[uint64]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an in-process detail store.
func NewMemoryStore(cfg config.DetailCacheConfig) *MemoryStore {
	return &MemoryStore{
		cfg:     cfg,
		entries: make(map[uint64]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id uint64) (model.UserDetail, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return model.UserDetail{}, false, nil
	}
	if s.now().Sub(e.cachedAt) > s.cfg.TTL {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := s.entries[id]; ok && s.now().Sub(cur.cachedAt) > s.cfg.TTL {
			delete(s.entries, id)
		}
		s.mu.Unlock()
		return model.UserDetail{}, false, nil
	}
	return e.detail, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, id uint64, d model.UserDetail) error {
	s.mu.Lock()
	s.entries[id] = memoryEntry{detail: d, cachedAt: s.now()}
	s.mu.Unlock()
	return nil
}
