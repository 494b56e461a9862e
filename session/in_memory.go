package session

import (
	"fmt"
	"sync"

	"github.com/platewise/platewise/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions in
// a process local map keyed by the composite session key. It is safe for
// concurrent access. Each returned session is cloned to prevent external
// mutation of internal state.
//
// Sessions live for the process lifetime; durable conversation history is the
// chat log store's concern, not this one's.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create allocates a new session for the key. Creating a key that already
// exists is an error so callers can distinguish "fresh" from "resumed".
func (s *InMemoryStore) Create(key core.SessionKey) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[key.String()]; ok {
		return nil, core.NewSessionError("create", key, fmt.Errorf("session already exists"))
	}

	sess := core.NewSession(key)
	s.sessions[key.String()] = sess

	return sess.Clone(), nil
}

// Get returns a clone of an existing session.
func (s *InMemoryStore) Get(key core.SessionKey) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key.String()]
	if !ok {
		return nil, core.NewSessionError("get", key, fmt.Errorf("session not found"))
	}

	return sess.Clone(), nil
}

// GetOrCreate attempts creation first and falls back to retrieval when the
// session already exists. The backend has no atomic create-if-absent
// primitive, hence the two-step dance. Repeated calls for the same key return
// sessions with identical state.
func (s *InMemoryStore) GetOrCreate(key core.SessionKey) (*core.Session, error) {
	sess, err := s.Create(key)
	if err == nil {
		return sess, nil
	}

	sess, getErr := s.Get(key)
	if getErr != nil {
		return nil, core.NewSessionError("get_or_create", key, getErr)
	}

	return sess, nil
}

// AppendEvent adds an event to an existing session.
func (s *InMemoryStore) AppendEvent(key core.SessionKey, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key.String()]
	if !ok {
		return core.NewSessionError("append_event", key, fmt.Errorf("session not found"))
	}
	sess.AddEvent(ev)

	return nil
}

// ApplyDelta merges a key/value delta into the session state.
func (s *InMemoryStore) ApplyDelta(key core.SessionKey, delta map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key.String()]
	if !ok {
		return core.NewSessionError("apply_delta", key, fmt.Errorf("session not found"))
	}
	sess.MergeState(delta)

	return nil
}
