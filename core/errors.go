package core

import "fmt"

// SessionError reports a failed session store operation.
type SessionError struct {
	Op  string     // store operation: create, get, append_event, apply_delta
	Key SessionKey // session the operation targeted
	Err error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *SessionError) Unwrap() error { return e.Err }

// NewSessionError wraps err with the failed operation and session key.
func NewSessionError(op string, key SessionKey, err error) *SessionError {
	return &SessionError{Op: op, Key: key, Err: err}
}

// PersistenceError reports a failed durable write (chat log, memory). The
// orchestrator logs these and keeps going; a lost log row must not fail the
// user-visible request.
type PersistenceError struct {
	Store string // "chatlog" or "memory"
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err with the failed store and operation.
func NewPersistenceError(store, op string, err error) *PersistenceError {
	return &PersistenceError{Store: store, Op: op, Err: err}
}

// OrchestrationError is the single outer wrapper produced at the orchestrator
// boundary for failures that abort a run. Callers inspect the cause via
// errors.Is/As; transports render one generic payload regardless.
type OrchestrationError struct {
	RunID string
	Phase string // routing, pipeline, stage, persistence
	Err   error
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("orchestration failed during %s (run %s): %v", e.Phase, e.RunID, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *OrchestrationError) Unwrap() error { return e.Err }

// NewOrchestrationError wraps err with the run id and failing phase.
func NewOrchestrationError(runID, phase string, err error) *OrchestrationError {
	return &OrchestrationError{RunID: runID, Phase: phase, Err: err}
}
