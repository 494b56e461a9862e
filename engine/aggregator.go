package engine

import (
	"strings"

	"github.com/platewise/platewise/core"
)

// NoResponseSentinel is returned when a stage produced no usable content.
const NoResponseSentinel = "no response generated"

// Aggregator folds a stage's event stream into one response string. Content
// chunks are collected in arrival order; control events (function calls and
// responses) and partial fragments are excluded. Chunks equal to "" or the
// literal "None" are discarded as noise.
//
// All chunks are joined, never just the last one: stages frequently emit the
// substantive answer first and a short confirmation afterwards, and
// truncating to the last chunk would silently discard the answer.
type Aggregator struct {
	chunks []string
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Observe inspects one event and collects its text if it is a content chunk.
func (a *Aggregator) Observe(ev core.Event) {
	if ev.IsPartial() {
		return
	}
	if ev.Content == nil || ev.Content.Role != "assistant" {
		return
	}
	if len(ev.GetFunctionCalls()) > 0 || len(ev.GetFunctionResponses()) > 0 {
		return
	}

	text := ev.Text()
	if text == "" || text == "None" {
		return
	}

	a.chunks = append(a.chunks, text)
}

// Result joins the collected chunks with a blank line, or returns the
// sentinel when nothing was collected.
func (a *Aggregator) Result() string {
	if len(a.chunks) == 0 {
		return NoResponseSentinel
	}

	return strings.Join(a.chunks, "\n\n")
}
