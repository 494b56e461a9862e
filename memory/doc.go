// Package memory houses concrete implementations of core.MemoryStore, the
// vector-indexed long-term user profile store. The store interface and
// SearchResult type reside in the core package; depend on core.MemoryStore in
// calling code and select an implementation at wiring time.
//
// The in-memory implementation serves tests and single-process deployments;
// the weaviate sub-package backs the same contract with a real vector
// database.
package memory
