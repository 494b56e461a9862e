// Package core provides the foundational domain types, interfaces and
// execution contexts used by the orchestration engine. It defines:
//
//   - Sessions (stateful conversational containers with event history)
//   - Events (immutable communication records with staged state deltas)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//   - Pluggable stores for session state, chat history and memory recall
//   - The shared error taxonomy for session, persistence and run failures
//
// The package intentionally keeps implementation concerns (persistence,
// orchestration, concrete stages) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
