package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/logging"
	"github.com/platewise/platewise/model"
	"github.com/platewise/platewise/session"
	"github.com/platewise/platewise/stage"
	"github.com/platewise/platewise/tool"
)

// scriptedModel serves one prepared turn per Generate call.
type scriptedModel struct {
	mu    sync.Mutex
	turns [][]model.Response
	err   error
	calls int
}

func (m *scriptedModel) Generate(_ context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(chan model.Response, 16)
	errCh := make(chan error, 1)

	if m.err != nil {
		errCh <- m.err
		close(out)
		close(errCh)
		return out, errCh
	}

	if m.calls < len(m.turns) {
		for _, resp := range m.turns[m.calls] {
			out <- resp
		}
	}
	m.calls++

	close(out)
	close(errCh)

	return out, errCh
}

func (m *scriptedModel) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "test"}
}

func textResponse(text string) model.Response {
	return model.Response{
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: "stop",
	}
}

func callResponse(id, name, args string) model.Response {
	return model.Response{
		Content: core.Content{Role: "assistant", Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}},
		}},
		FinishReason: "tool_calls",
	}
}

func newRunContext(t *testing.T, store core.SessionStore, chatLog core.ChatLogStore) *core.RunContext {
	t.Helper()

	key := core.SessionKey{App: "platewise", UserID: "user-1", ID: "session-1"}
	sess, err := store.GetOrCreate(key)
	require.NoError(t, err)

	require.NoError(t, store.AppendEvent(key, core.NewUserMessageEvent("run-1", "plan my dinner")))
	sess, err = store.Get(key)
	require.NoError(t, err)

	events := make(chan core.Event, 100)

	return core.NewRunContext(
		context.Background(), key, "run-1", core.StageInfo{},
		core.NewUserContent("plan my dinner"), 10, events, sess,
		store, nil, chatLog, logging.NoOpLogger{},
	)
}

func TestRun_AggregatesContentAndWritesOutputKey(t *testing.T) {
	m := &scriptedModel{turns: [][]model.Response{
		{textResponse("Here is your plan...")},
	}}
	exec := NewStageExecutor(m)
	store := session.NewInMemoryStore()
	runCtx := newRunContext(t, store, nil)

	st := stage.Stage{Name: "DailyMealPlanner", Instruction: "plan meals", OutputKey: "meal_plan"}
	text, err := exec.Run(runCtx.WithStage(st.Info()), st)
	require.NoError(t, err)
	assert.Equal(t, "Here is your plan...", text)

	sess, err := store.Get(runCtx.Key)
	require.NoError(t, err)
	v, ok := sess.GetState("meal_plan")
	require.True(t, ok)
	assert.Equal(t, "Here is your plan...", v)
}

func TestRun_ToolLoopPreservesAllContentChunks(t *testing.T) {
	saveTool := tool.NewFunctionTool(
		"save_plan", "Persist the plan",
		map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) { return "ok", nil },
	)

	m := &scriptedModel{turns: [][]model.Response{
		{textResponse("Here is your plan..."), callResponse("fc-1", "save_plan", `{}`)},
		{textResponse("Saved!")},
	}}
	exec := NewStageExecutor(m)
	store := session.NewInMemoryStore()
	runCtx := newRunContext(t, store, nil)

	st := stage.Stage{
		Name: "VarietyCheck", Instruction: "check variety",
		OutputKey: "varieties_meal", Tools: []tool.Tool{saveTool},
	}
	text, err := exec.Run(runCtx.WithStage(st.Info()), st)
	require.NoError(t, err)
	assert.Equal(t, "Here is your plan...\n\nSaved!", text)
	assert.Equal(t, 2, m.calls)
}

func TestRun_OnlyControlEventsYieldSentinel(t *testing.T) {
	noopTool := tool.NewFunctionTool(
		"noop", "Does nothing",
		map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) { return "ok", nil },
	)

	m := &scriptedModel{turns: [][]model.Response{
		{callResponse("fc-1", "noop", `{}`)},
		{textResponse("None")},
	}}
	exec := NewStageExecutor(m)
	store := session.NewInMemoryStore()
	runCtx := newRunContext(t, store, nil)

	st := stage.Stage{Name: "MealInstructions", Instruction: "instr", Tools: []tool.Tool{noopTool}}
	text, err := exec.Run(runCtx.WithStage(st.Info()), st)
	require.NoError(t, err)
	assert.Equal(t, NoResponseSentinel, text)
}

func TestRun_InstructionRendersSessionState(t *testing.T) {
	var seenInstructions string
	m := &capturingModel{answer: "done"}
	exec := NewStageExecutor(m)
	store := session.NewInMemoryStore()
	runCtx := newRunContext(t, store, nil)
	require.NoError(t, store.ApplyDelta(runCtx.Key, map[string]any{"recipe_find": "lentil curry"}))
	require.NoError(t, runCtx.RefreshSession())

	st := stage.Stage{Name: "DailyMealPlanner", Instruction: "Recipes: {{.recipe_find}}"}
	_, err := exec.Run(runCtx.WithStage(st.Info()), st)
	require.NoError(t, err)

	seenInstructions = m.lastInstructions
	assert.Equal(t, "Recipes: lentil curry", seenInstructions)
}

func TestRun_ModelCallLimitEnforced(t *testing.T) {
	loopTool := tool.NewFunctionTool(
		"loop", "Loops forever",
		map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) { return "again", nil },
	)

	// Every turn requests another tool call, never finishing.
	turns := make([][]model.Response, 20)
	for i := range turns {
		turns[i] = []model.Response{callResponse("fc", "loop", `{}`)}
	}
	m := &scriptedModel{turns: turns}
	exec := NewStageExecutor(m)
	store := session.NewInMemoryStore()

	key := core.SessionKey{App: "platewise", UserID: "user-1", ID: "session-1"}
	sess, err := store.GetOrCreate(key)
	require.NoError(t, err)
	events := make(chan core.Event, 1000)
	runCtx := core.NewRunContext(
		context.Background(), key, "run-1", core.StageInfo{},
		core.NewUserContent("go"), 3, events, sess, store, nil, nil, logging.NoOpLogger{},
	)

	st := stage.Stage{Name: "RecipeFinder", Instruction: "find", Tools: []tool.Tool{loopTool}}
	_, err = exec.Run(runCtx, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max model calls")
}

func TestRun_UnboundToolReportedInResponseEvent(t *testing.T) {
	m := &scriptedModel{turns: [][]model.Response{
		{callResponse("fc-1", "not_bound", `{}`)},
		{textResponse("recovered")},
	}}
	exec := NewStageExecutor(m)
	store := session.NewInMemoryStore()
	runCtx := newRunContext(t, store, nil)

	st := stage.Stage{Name: "RecipeFinder", Instruction: "find"}
	text, err := exec.Run(runCtx.WithStage(st.Info()), st)
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)

	sess, err := store.Get(runCtx.Key)
	require.NoError(t, err)
	var sawError bool
	for _, ev := range sess.GetEvents() {
		for _, fr := range ev.GetFunctionResponses() {
			if fr.Name == "not_bound" && fr.Error != "" {
				sawError = true
			}
		}
	}
	assert.True(t, sawError, "expected a function response event carrying the binding error")
}

// capturingModel records the last request's instructions.
type capturingModel struct {
	mu               sync.Mutex
	answer           string
	lastInstructions string
}

func (m *capturingModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.lastInstructions = req.Instructions
	m.mu.Unlock()

	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	out <- textResponse(m.answer)
	close(out)
	close(errCh)

	return out, errCh
}

func (m *capturingModel) Info() model.Info {
	return model.Info{Name: "capturing", Provider: "test"}
}
