package engine

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/internal/util"
	"github.com/platewise/platewise/logging"
	"github.com/platewise/platewise/model"
	"github.com/platewise/platewise/stage"
)

// ExecutorOptions configures the stage executor.
type ExecutorOptions struct {
	Logger logging.Logger
}

// StageExecutor runs one stage to completion: it renders the stage
// instruction against session state, drives the model turn loop (executing
// requested tools between turns) and aggregates the content stream into the
// stage's final text.
type StageExecutor struct {
	model model.Model
	opts  ExecutorOptions
}

// NewStageExecutor creates an executor backed by the given model.
func NewStageExecutor(m model.Model, optFns ...func(o *ExecutorOptions)) *StageExecutor {
	opts := ExecutorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &StageExecutor{model: m, opts: opts}
}

// Run executes the stage against the run context and returns the aggregated
// text. The stage's output key, if any, is committed to session state before
// returning so subsequent stages can reference it.
func (e *StageExecutor) Run(runCtx *core.RunContext, st stage.Stage) (string, error) {
	start := time.Now()
	e.opts.Logger.Info("stage.start", "stage", st.Name, "run_id", runCtx.RunID)

	instructions, err := util.RenderTemplate(st.Instruction, runCtx.StateSnapshot())
	if err != nil {
		return "", fmt.Errorf("render instruction for stage %s: %w", st.Name, err)
	}

	contents := e.buildContents(runCtx)
	toolDefs := buildToolDefinitions(st)
	agg := NewAggregator()

	for {
		if err := runCtx.Limiter.Increment(); err != nil {
			return "", fmt.Errorf("stage %s: %w", st.Name, err)
		}
		e.opts.Logger.Debug("stage.model_call",
			"stage", st.Name, "calls_remaining", runCtx.Limiter.Remaining())

		req := model.Request{
			Instructions: instructions,
			Contents:     contents,
			Tools:        toolDefs,
		}

		respCh, errCh := e.model.Generate(runCtx.Context, req)

		var pendingCalls []core.FunctionCall
		turnProduced := false

		for resp := range respCh {
			ev := core.NewEvent(runCtx.RunID, st.Name)
			content := resp.Content
			ev.Content = &content
			partial := resp.Partial
			ev.Partial = &partial

			calls := ev.GetFunctionCalls()
			if !resp.Partial && len(calls) == 0 {
				complete := true
				ev.TurnComplete = &complete
			}

			agg.Observe(ev)

			if err := e.record(runCtx, ev); err != nil {
				return "", err
			}

			if !resp.Partial {
				turnProduced = true
				contents = append(contents, resp.Content)
				pendingCalls = append(pendingCalls, calls...)
			}
		}

		if err := <-errCh; err != nil {
			return "", fmt.Errorf("stage %s: %w", st.Name, err)
		}

		if len(pendingCalls) == 0 {
			if !turnProduced {
				e.opts.Logger.Warn("stage.empty_turn", "stage", st.Name)
			}
			break
		}

		for _, call := range pendingCalls {
			respEv := e.executeCall(runCtx, st, call)
			if err := e.record(runCtx, respEv); err != nil {
				return "", err
			}
			contents = append(contents, *respEv.Content)
		}
	}

	final := agg.Result()

	if st.OutputKey != "" {
		runCtx.SetState(st.OutputKey, final)
		if err := runCtx.CommitStateDelta(); err != nil {
			return "", fmt.Errorf("commit output for stage %s: %w", st.Name, err)
		}
		if err := runCtx.RefreshSession(); err != nil {
			return "", fmt.Errorf("refresh session for stage %s: %w", st.Name, err)
		}
	}

	e.opts.Logger.Info("stage.complete",
		"stage", st.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"model_calls", runCtx.Limiter.Count(),
	)

	return final, nil
}

// executeCall runs one requested tool invocation, recovering panics so a
// misbehaving tool degrades the stage instead of crashing the run.
func (e *StageExecutor) executeCall(runCtx *core.RunContext, st stage.Stage, call core.FunctionCall) core.Event {
	toolCtx := core.NewToolContext(runCtx, call.ID)

	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
				e.opts.Logger.Error("stage.tool.panic",
					"stage", st.Name, "tool", call.Name, "stack", string(debug.Stack()))
			}
		}()
		result, err = e.invokeTool(toolCtx, st, call)
	}()

	e.opts.Logger.Info("stage.tool.executed",
		"stage", st.Name, "tool", call.Name, "fc_id", call.ID, "error", err != nil)

	respEv := core.NewFunctionResponseEvent(st.Name, call.ID, call.Name, result, err)
	respEv.RunID = runCtx.RunID
	toolCtx.InternalApplyActions(&respEv)

	return respEv
}

func (e *StageExecutor) invokeTool(toolCtx *core.ToolContext, st stage.Stage, call core.FunctionCall) (any, error) {
	impl, ok := st.ToolByName(call.Name)
	if !ok {
		return nil, fmt.Errorf("tool %s not bound to stage %s", call.Name, st.Name)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, fmt.Errorf("unmarshal args for %s: %w", call.Name, err)
		}
	}

	return impl.Call(toolCtx, args)
}

// record emits the event (merging any pending state delta) and persists it
// with its state actions.
func (e *StageExecutor) record(runCtx *core.RunContext, ev core.Event) error {
	if err := runCtx.EmitEvent(ev); err != nil {
		return err
	}

	if runCtx.SessionStore == nil {
		return nil
	}
	if ev.IsPartial() {
		return nil
	}

	if err := runCtx.SessionStore.AppendEvent(runCtx.Key, ev); err != nil {
		return err
	}
	if len(ev.Actions.StateDelta) > 0 {
		if err := runCtx.SessionStore.ApplyDelta(runCtx.Key, ev.Actions.StateDelta); err != nil {
			return err
		}
		if err := runCtx.RefreshSession(); err != nil {
			return err
		}
	}

	return nil
}

// buildContents assembles the request contents from conversation history.
// The orchestrator appends the current user message before the first stage
// runs, so history already ends with it; the fallback covers bare run
// contexts without a persisted session.
func (e *StageExecutor) buildContents(runCtx *core.RunContext) []core.Content {
	var contents []core.Content

	for _, ev := range runCtx.GetSessionHistory() {
		if ev.Content == nil || ev.IsPartial() {
			continue
		}
		contents = append(contents, *ev.Content)
	}

	if len(contents) == 0 {
		contents = append(contents, runCtx.UserContent)
	}

	return contents
}

func buildToolDefinitions(st stage.Stage) []model.ToolDefinition {
	if len(st.Tools) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(st.Tools))
	for _, t := range st.Tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}
