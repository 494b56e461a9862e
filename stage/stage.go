// Package stage defines the pipeline stage model: a named unit of model work
// with an instruction template, an output key the aggregated result is stored
// under, and the tools the stage's model may call.
package stage

import (
	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/tool"
)

// Stage is one sequential unit of a pipeline. Its instruction is a template
// rendered against the merged session state, so later stages can reference
// earlier outputs by their output keys.
type Stage struct {
	// Name identifies the stage in events and logs.
	Name string
	// Description is a short summary surfaced in logs.
	Description string
	// Instruction is the system instruction template for the stage's model.
	Instruction string
	// OutputKey is the session state key the aggregated stage output is
	// written to. Empty means the output is not stored.
	OutputKey string
	// Tools the stage's model may invoke.
	Tools []tool.Tool
}

// Info returns the core identification for this stage.
func (s Stage) Info() core.StageInfo {
	return core.StageInfo{Name: s.Name, OutputKey: s.OutputKey}
}

// ToolByName returns the stage tool with the given name.
func (s Stage) ToolByName(name string) (tool.Tool, bool) {
	for _, t := range s.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Pipeline is an ordered sequence of stages executed against one session.
type Pipeline struct {
	Name   string
	Stages []Stage
}
