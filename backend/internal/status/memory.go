package status

import (
	"context"
	"sync"
	"time"

	apperrors "agent-neo/backend/pkg/errors"
)

// MemoryTracker keeps statuses in process. Expired entries are pruned on write.
type MemoryTracker struct {
	mu      sync.RWMutex
	entries map[string]Status
	ttl     time.Duration
	now     func() time.Time
}

var _ Tracker = (*MemoryTracker)(nil)

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryTracker{
		entries: make(map[string]Status),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (t *MemoryTracker) Set(_ context.Context, s Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s.UpdatedAt = now
	t.entries[s.MessageID] = s

	for id, e := range t.entries {
		if now.Sub(e.UpdatedAt) > t.ttl {
			delete(t.entries, id)
		}
	}
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, messageID string) (Status, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.entries[messageID]
	if !ok || t.now().Sub(s.UpdatedAt) > t.ttl {
		return Status{}, apperrors.NewStatusNotFound(messageID)
	}
	return s, nil
}
