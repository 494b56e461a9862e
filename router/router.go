// Package router classifies raw user input into one of a fixed set of intent
// decisions that select which pipeline to run.
package router

import (
	"context"
	"strings"

	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/logging"
	"github.com/platewise/platewise/model"
)

// Decision is a validated routing intent.
type Decision string

// The allowed decision set. FullFlow is the conservative default: it runs
// every stage, so a misroute costs latency but never drops the request.
const (
	UpdateProfile Decision = "UPDATE_PROFILE"
	GeneratePlan  Decision = "GENERATE_PLAN"
	FullFlow      Decision = "FULL_FLOW"
)

// Decisions lists the allowed decision set.
func Decisions() []Decision {
	return []Decision{UpdateProfile, GeneratePlan, FullFlow}
}

// Normalize cleans raw router output: trims whitespace, strips literal
// backticks, uppercases. Models wrap answers in code fences often enough
// that this is load-bearing.
func Normalize(raw string) string {
	cleaned := strings.ReplaceAll(raw, "`", "")
	return strings.ToUpper(strings.TrimSpace(cleaned))
}

// Parse normalizes raw output and validates it against the allowed set. The
// second return reports whether the value was recognized; unrecognized input
// yields FullFlow.
func Parse(raw string) (Decision, bool) {
	switch Decision(Normalize(raw)) {
	case UpdateProfile:
		return UpdateProfile, true
	case GeneratePlan:
		return GeneratePlan, true
	case FullFlow:
		return FullFlow, true
	default:
		return FullFlow, false
	}
}

const defaultInstruction = `You are an intent router for a meal planning assistant.

Classify the user request into exactly one of:
- UPDATE_PROFILE: the request only adds or changes dietary preferences, restrictions, allergies or goals.
- GENERATE_PLAN: the request only asks for recipes, meal plans or cooking instructions.
- FULL_FLOW: the request contains both profile information and a planning request, or you are unsure.

Respond with the single label and nothing else.`

// Options configures the Router.
type Options struct {
	Instruction string
	Logger      logging.Logger
}

// Router performs a single tool-free model call to classify user input.
type Router struct {
	model model.Model
	opts  Options
}

// New creates a Router backed by the given model.
func New(m model.Model, optFns ...func(o *Options)) *Router {
	opts := Options{
		Instruction: defaultInstruction,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Router{model: m, opts: opts}
}

// Classify runs the router probe and returns the validated decision. The
// probe is stateless: nothing is written to any session, so router reasoning
// never appears in the user-visible transcript. A model failure is returned
// as an error; an unrecognized answer is not, it degrades to FullFlow.
func (r *Router) Classify(ctx context.Context, userInput string) (Decision, error) {
	req := model.Request{
		Instructions: r.opts.Instruction,
		Contents:     []core.Content{core.NewUserContent(userInput)},
	}

	respCh, errCh := r.model.Generate(ctx, req)

	var raw strings.Builder
	for resp := range respCh {
		if resp.Partial {
			continue
		}
		raw.WriteString(resp.Content.Text())
	}
	if err := <-errCh; err != nil {
		return "", err
	}

	decision, recognized := Parse(raw.String())
	if !recognized {
		r.opts.Logger.Warn("router.unrecognized_decision", "raw", raw.String(), "fallback", string(FullFlow))
	} else {
		r.opts.Logger.Debug("router.decision", "decision", string(decision))
	}

	return decision, nil
}
