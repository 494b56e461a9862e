package core

import (
	"context"
)

type testLogger struct{}

func (l testLogger) Debug(string, ...interface{}) {}
func (l testLogger) Info(string, ...interface{})  {}
func (l testLogger) Warn(string, ...interface{})  {}
func (l testLogger) Error(string, ...interface{}) {}

type rcMockSessionStore struct {
	applied map[string]map[string]interface{}
}

func (s *rcMockSessionStore) Get(key SessionKey) (*Session, error)    { return NewSession(key), nil }
func (s *rcMockSessionStore) Create(key SessionKey) (*Session, error) { return NewSession(key), nil }
func (s *rcMockSessionStore) GetOrCreate(key SessionKey) (*Session, error) {
	return NewSession(key), nil
}
func (s *rcMockSessionStore) AppendEvent(key SessionKey, ev Event) error { return nil }
func (s *rcMockSessionStore) ApplyDelta(key SessionKey, delta map[string]interface{}) error {
	if s.applied == nil {
		s.applied = map[string]map[string]interface{}{}
	}
	cp := map[string]interface{}{}
	for k, v := range delta {
		cp[k] = v
	}
	s.applied[key.String()] = cp
	return nil
}

type rcMockMemoryStore struct{ saved []MemoryRecord }

func (m *rcMockMemoryStore) Save(ctx context.Context, rec MemoryRecord) error {
	m.saved = append(m.saved, rec)
	return nil
}

func (m *rcMockMemoryStore) Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{}, nil
}

func (m *rcMockMemoryStore) Delete(ctx context.Context, userID, text string) error { return nil }

type rcMockChatLog struct{ entries []ChatLogEntry }

func (c *rcMockChatLog) Append(ctx context.Context, entry ChatLogEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func (c *rcMockChatLog) Recent(ctx context.Context, userID, sessionID string, limit int) ([]ChatLogEntry, error) {
	return c.entries, nil
}

func testSessionKey() SessionKey {
	return SessionKey{App: "platewise", UserID: "user-x", ID: "sess-x"}
}

func newRunContextForTest() (*RunContext, chan Event) {
	emit := make(chan Event, 5)
	key := testSessionKey()
	sess := NewSession(key)
	sStore := &rcMockSessionStore{}
	mStore := &rcMockMemoryStore{}
	cLog := &rcMockChatLog{}
	rc := NewRunContext(context.Background(), key, "run-x", StageInfo{Name: "Stage1", OutputKey: "out"}, Content{}, 0, emit, sess, sStore, mStore, cLog, testLogger{})
	return rc, emit
}
