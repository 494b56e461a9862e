package engine

import (
	"context"
	"time"

	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/logging"
	"github.com/platewise/platewise/pipeline"
	"github.com/platewise/platewise/router"
	"github.com/platewise/platewise/stage"
	"github.com/platewise/platewise/tool"
)

// OrchestratorOptions configures the orchestrator.
type OrchestratorOptions struct {
	// App namespaces session keys.
	App string
	// MaxModelCalls bounds model invocations per run across all stages.
	// Zero means unlimited.
	MaxModelCalls int
	Logger        logging.Logger
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Orchestrator coordinates one user request end to end: router probe,
// pipeline selection, sequential stage execution and best-effort fallback
// persistence of the exchange.
type Orchestrator struct {
	router   *router.Router
	factory  *pipeline.Factory
	executor *StageExecutor
	sessions core.SessionStore
	memory   core.MemoryStore
	chatLog  core.ChatLogStore
	opts     OrchestratorOptions
}

// NewOrchestrator wires the orchestrator from its collaborators. memory and
// chatLog may be nil; the corresponding capabilities then report themselves
// unavailable instead of failing runs.
func NewOrchestrator(
	r *router.Router,
	factory *pipeline.Factory,
	executor *StageExecutor,
	sessions core.SessionStore,
	memory core.MemoryStore,
	chatLog core.ChatLogStore,
	optFns ...func(o *OrchestratorOptions),
) *Orchestrator {
	opts := OrchestratorOptions{
		App:           "platewise",
		MaxModelCalls: 25,
		Logger:        logging.NoOpLogger{},
		Now:           time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		router:   r,
		factory:  factory,
		executor: executor,
		sessions: sessions,
		memory:   memory,
		chatLog:  chatLog,
		opts:     opts,
	}
}

// Execute runs the full workflow for one user input and returns the last
// stage's aggregated text. Failures in routing, session resolution or stage
// execution are wrapped into an OrchestrationError; fallback persistence
// failures are logged and swallowed since persistence is advisory.
func (o *Orchestrator) Execute(ctx context.Context, userID, userInput, sessionID string) (string, error) {
	runID := core.NewID()
	logger := o.opts.Logger

	logger.Info("orchestrator.start", "run_id", runID, "user_id", userID, "session_id", sessionID)

	// The router probe is stateless: its exchange never touches the
	// user-visible session.
	decision, err := o.router.Classify(ctx, userInput)
	if err != nil {
		return "", core.NewOrchestrationError(runID, "route", err)
	}

	pl := o.factory.Build(decision)
	logger.Info("orchestrator.pipeline_selected",
		"run_id", runID, "decision", string(decision), "pipeline", pl.Name, "stages", len(pl.Stages))

	key := core.SessionKey{App: o.opts.App, UserID: userID, ID: sessionID}
	sess, err := o.sessions.GetOrCreate(key)
	if err != nil {
		return "", core.NewOrchestrationError(runID, "session", err)
	}

	events := make(chan core.Event, 100)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range events {
			logger.Debug("orchestrator.event",
				"run_id", ev.RunID, "author", ev.Author, "partial", ev.IsPartial())
		}
	}()

	runCtx := core.NewRunContext(
		ctx, key, runID, core.StageInfo{}, core.NewUserContent(userInput),
		o.opts.MaxModelCalls, events, sess, o.sessions, o.memory, o.chatLog, logger,
	)

	finalText, err := o.runPipeline(runCtx, pl.Stages, userID, userInput)

	close(events)
	<-drained

	if err != nil {
		return "", err
	}

	o.persistFallback(ctx, runCtx, userInput, finalText)

	logger.Info("orchestrator.complete", "run_id", runID, "model_calls", runCtx.Limiter.Count())

	return finalText, nil
}

// runPipeline seeds the run's initial context, records the user message and
// executes the stages strictly sequentially, threading session state forward.
func (o *Orchestrator) runPipeline(runCtx *core.RunContext, stages []stage.Stage, userID, userInput string) (string, error) {
	runCtx.ApplyStateDelta(map[string]any{
		"user_id":      userID,
		"user_input":   userInput,
		"current_time": o.opts.Now().Format("2006-01-02 15:04:05"),
	})
	if err := runCtx.CommitStateDelta(); err != nil {
		return "", core.NewOrchestrationError(runCtx.RunID, "seed_state", err)
	}
	if err := runCtx.RefreshSession(); err != nil {
		return "", core.NewOrchestrationError(runCtx.RunID, "seed_state", err)
	}

	userEv := core.NewUserMessageEvent(runCtx.RunID, userInput)
	if err := o.sessions.AppendEvent(runCtx.Key, userEv); err != nil {
		return "", core.NewOrchestrationError(runCtx.RunID, "record_input", err)
	}
	if err := runCtx.RefreshSession(); err != nil {
		return "", core.NewOrchestrationError(runCtx.RunID, "record_input", err)
	}

	finalText := NoResponseSentinel
	for _, st := range stages {
		stageCtx := runCtx.WithStage(st.Info())

		text, err := o.executor.Run(stageCtx, st)
		if err != nil {
			return "", core.NewOrchestrationError(runCtx.RunID, "stage:"+st.Name, err)
		}

		finalText = text
		// Thread the refreshed session snapshot forward.
		runCtx.Session = stageCtx.Session
	}

	return finalText, nil
}

// persistFallback writes the exchange to the durable chat log unless a stage
// already saved it explicitly. Errors are logged, never surfaced: the
// user-visible answer does not depend on advisory persistence.
func (o *Orchestrator) persistFallback(ctx context.Context, runCtx *core.RunContext, userInput, finalText string) {
	if o.chatLog == nil {
		return
	}

	if saved, ok := runCtx.GetState(tool.MealPlanSavedStateKey); ok {
		if flag, isBool := saved.(bool); isBool && flag {
			o.opts.Logger.Debug("orchestrator.fallback_skipped", "run_id", runCtx.RunID, "reason", "explicit save")
			return
		}
	}

	now := o.opts.Now().UTC()
	rows := []core.ChatLogEntry{
		{
			UserID: runCtx.Key.UserID, SessionID: runCtx.Key.ID,
			Role: core.ChatRoleUser, Content: userInput, CreatedAt: now,
		},
		{
			UserID: runCtx.Key.UserID, SessionID: runCtx.Key.ID,
			Role: core.ChatRoleAssistant, Content: finalText, CreatedAt: now,
		},
	}

	for _, row := range rows {
		if err := o.chatLog.Append(ctx, row); err != nil {
			o.opts.Logger.Warn("orchestrator.fallback_persist_failed",
				"run_id", runCtx.RunID, "role", row.Role, "error", err.Error())
			return
		}
	}

	o.opts.Logger.Debug("orchestrator.fallback_persisted", "run_id", runCtx.RunID)
}
