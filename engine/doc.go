// Package engine contains the run machinery: the stage executor that drives
// one model-backed stage to completion (including its tool loop), the event
// aggregator that folds a stage's content stream into one response string, and
// the orchestrator that ties router, pipeline factory, executor and fallback
// persistence together per user request.
package engine
