package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/platewise/platewise/logging"
)

// RunContext encapsulates the mutable, per-run execution scope passed to the
// stage executor. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (session Key, RunID, Stage info)
//   - Input user Content
//   - The event emission channel
//   - Backing services (session, memory, chat log) for persistence concerns
//   - A working Session snapshot and pending StateDelta to commit
//
// State mutations performed via SetState accumulate in StateDelta until
// CommitStateDelta or EmitEvent applies them. WithStage produces an isolated
// delta buffer per stage while keeping references to underlying services.
type RunContext struct {
	Context       context.Context
	Key           SessionKey
	RunID         string
	Stage         StageInfo
	UserContent   Content
	MaxModelCalls int
	Emit          chan<- Event
	SessionStore  SessionStore
	MemoryStore   MemoryStore
	ChatLog       ChatLogStore
	Limiter       *ModelLimiter
	Session       *Session
	StateDelta    map[string]any

	*loggerAdapter
}

// NewRunContext constructs a RunContext with an empty state delta.
func NewRunContext(
	ctx context.Context,
	key SessionKey,
	runID string,
	stage StageInfo,
	userContent Content,
	maxModelCalls int,
	emit chan<- Event,
	sess *Session,
	sessionStore SessionStore,
	memoryStore MemoryStore,
	chatLog ChatLogStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		Key:           key,
		RunID:         runID,
		Stage:         stage,
		UserContent:   userContent,
		MaxModelCalls: maxModelCalls,
		Emit:          emit,
		Session:       sess,
		SessionStore:  sessionStore,
		MemoryStore:   memoryStore,
		ChatLog:       chatLog,
		Limiter:       NewModelLimiter(maxModelCalls),
		StateDelta:    map[string]any{},
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) {
	maps.Copy(rc.StateDelta, d)
}

// StateSnapshot returns the merged view of persisted state plus the staged
// delta, suitable for instruction template rendering.
func (rc *RunContext) StateSnapshot() map[string]any {
	snapshot := map[string]any{}
	if rc.Session != nil {
		for _, k := range rc.sessionStateKeys() {
			if v, ok := rc.Session.GetState(k); ok {
				snapshot[k] = v
			}
		}
	}
	maps.Copy(snapshot, rc.StateDelta)
	return snapshot
}

func (rc *RunContext) sessionStateKeys() []string {
	clone := rc.Session.Clone()
	keys := make([]string, 0, len(clone.State))
	for k := range clone.State {
		keys = append(keys, k)
	}
	return keys
}

// RefreshSession reloads the session snapshot from the SessionStore.
func (rc *RunContext) RefreshSession() error {
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	s, err := rc.SessionStore.Get(rc.Key)
	if err != nil {
		return err
	}

	rc.Session = s

	return nil
}

// CommitStateDelta persists the accumulated StateDelta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}

	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	if err := rc.SessionStore.ApplyDelta(rc.Key, rc.StateDelta); err != nil {
		return err
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// GetSessionHistory returns all historical events for the session.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}

	return rc.Session.GetEvents()
}

// StageName returns the logical stage name for this scope.
func (rc *RunContext) StageName() string { return rc.Stage.Name }

// WithStage returns a copy scoped to the given stage with a fresh delta
// buffer. The shared limiter and services carry over so the per-run model
// call budget spans all stages.
func (rc *RunContext) WithStage(stage StageInfo) *RunContext {
	return &RunContext{
		Context:       rc.Context,
		Key:           rc.Key,
		RunID:         rc.RunID,
		Stage:         stage,
		UserContent:   rc.UserContent,
		MaxModelCalls: rc.MaxModelCalls,
		Emit:          rc.Emit,
		SessionStore:  rc.SessionStore,
		MemoryStore:   rc.MemoryStore,
		ChatLog:       rc.ChatLog,
		Limiter:       rc.Limiter,
		Session:       rc.Session,
		StateDelta:    map[string]any{},
		loggerAdapter: rc.loggerAdapter,
	}
}

// EmitEvent merges the pending StateDelta into the event and emits it.
func (rc *RunContext) EmitEvent(ev Event) error {
	if len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		for k, v := range rc.StateDelta {
			ev.Actions.StateDelta[k] = v
		}
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}

	return nil
}
