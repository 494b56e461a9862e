// Package platewise provides a high-level façade over the orchestration
// engine and its services (routing, pipelines, sessions, memory, chat log and
// logging) enabling rapid construction of a meal planning backend. Most
// applications interact with this package by:
//  1. Creating a Platewise via New() with a model (optionally overriding
//     default in-memory services)
//  2. Handling user requests with Execute()
//
// The façade delegates orchestration to engine.Orchestrator while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply durable store
// implementations and a structured logger.
package platewise

import (
	"context"
	"fmt"

	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/engine"
	"github.com/platewise/platewise/logging"
	"github.com/platewise/platewise/model"
	"github.com/platewise/platewise/pipeline"
	"github.com/platewise/platewise/router"
	"github.com/platewise/platewise/session"
	"github.com/platewise/platewise/stage"
	"github.com/platewise/platewise/tool"
)

// Options configures the Platewise instance.
type Options struct {
	// App namespaces session keys for multi-tenant deployments.
	App string

	// RouterModel classifies intent. Defaults to the main model when nil so a
	// single provider client can serve both concerns.
	RouterModel model.Model

	// MaxModelCalls bounds model invocations per run across all stages.
	MaxModelCalls int

	// PromptDir locates per-stage instruction template overrides. Empty means
	// built-in defaults.
	PromptDir string

	// Registry supplies the tools bound to pipeline stages. Defaults to the
	// standard tool set without external food API credentials.
	Registry *tool.Registry

	// Stores (defaults to in-memory implementations if not provided). A nil
	// MemoryStore or ChatLogStore disables the capability gracefully: tools
	// report the store inactive instead of failing runs.
	SessionStore core.SessionStore
	MemoryStore  core.MemoryStore
	ChatLogStore core.ChatLogStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Platewise is the high-level façade aggregating the orchestrator and its
// collaborators.
type Platewise struct {
	opts         Options
	orchestrator *engine.Orchestrator
}

// New creates a Platewise instance driving the given model. Any unset service
// is initialized with an in-memory implementation.
func New(m model.Model, optFns ...func(o *Options)) (*Platewise, error) {
	opts := Options{
		App:           "platewise",
		MaxModelCalls: 25,
		SessionStore:  session.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RouterModel == nil {
		opts.RouterModel = m
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}

	prompts := stage.NewPromptManager(opts.PromptDir, func(o *stage.PromptManagerOptions) {
		o.Logger = opts.Logger
	})

	factory, err := pipeline.NewFactory(opts.Registry, prompts)
	if err != nil {
		return nil, fmt.Errorf("build pipeline factory: %w", err)
	}

	r := router.New(opts.RouterModel, func(o *router.Options) {
		o.Logger = opts.Logger
	})

	executor := engine.NewStageExecutor(m, func(o *engine.ExecutorOptions) {
		o.Logger = opts.Logger
	})

	orchestrator := engine.NewOrchestrator(
		r, factory, executor,
		opts.SessionStore, opts.MemoryStore, opts.ChatLogStore,
		func(o *engine.OrchestratorOptions) {
			o.App = opts.App
			o.MaxModelCalls = opts.MaxModelCalls
			o.Logger = opts.Logger
		},
	)

	return &Platewise{opts: opts, orchestrator: orchestrator}, nil
}

// Execute runs the full workflow for one user input and returns the final
// answer text.
func (p *Platewise) Execute(ctx context.Context, userID, userInput, sessionID string) (string, error) {
	return p.orchestrator.Execute(ctx, userID, userInput, sessionID)
}

// DefaultRegistry returns the standard tool set. Food data tools are included
// without credentials; supply optFns to configure external API access.
func DefaultRegistry(optFns ...func(o *tool.FoodToolOptions)) *tool.Registry {
	registry := tool.NewRegistry()
	registry.MustRegister(tool.NewSaveUserPreferenceTool())
	registry.MustRegister(tool.NewRecallUserProfileTool())
	registry.MustRegister(tool.NewDeleteUserPreferenceTool())
	registry.MustRegister(tool.NewGetRecentConversationTool())
	registry.MustRegister(tool.NewSaveMealPlanTool())
	registry.MustRegister(tool.NewSearchRecipesTool(optFns...))
	registry.MustRegister(tool.NewSearchNutritionInfoTool(optFns...))
	registry.MustRegister(tool.NewSearchUSDADatabaseTool(optFns...))
	return registry
}
