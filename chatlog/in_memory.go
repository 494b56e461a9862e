package chatlog

import (
	"context"
	"sync"
	"time"

	"github.com/platewise/platewise/core"
)

// InMemoryStore is a volatile ChatLogStore for tests and deployments that do
// not need durable history.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []core.ChatLogEntry
}

// NewInMemoryStore constructs an empty in-memory chat log.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append records one history row.
func (s *InMemoryStore) Append(_ context.Context, entry core.ChatLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, entry)

	return nil
}

// Recent returns up to limit rows for (user, session) oldest to newest.
func (s *InMemoryStore) Recent(_ context.Context, userID, sessionID string, limit int) ([]core.ChatLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matched := make([]core.ChatLogEntry, 0, limit)
	for _, entry := range s.entries {
		if entry.UserID == userID && entry.SessionID == sessionID {
			matched = append(matched, entry)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	return matched, nil
}
