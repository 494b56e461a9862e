// Platewise - AI meal planning backend server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/platewise/platewise"
	"github.com/platewise/platewise/chatlog"
	"github.com/platewise/platewise/config"
	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/logging"
	"github.com/platewise/platewise/memory"
	weaviatestore "github.com/platewise/platewise/memory/weaviate"
	"github.com/platewise/platewise/model"
	"github.com/platewise/platewise/model/anthropic"
	"github.com/platewise/platewise/model/openai"
	"github.com/platewise/platewise/server"
	"github.com/platewise/platewise/tool"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)
	logger := logging.NewSlogAdapter(slogger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "addr", cfg.Server.Addr, "provider", cfg.Models.Provider)

	retryPolicy := model.RetryPolicy{
		Attempts:             cfg.Retry.Attempts,
		InitialDelay:         cfg.Retry.InitialDelay.Std(),
		ExpBase:              cfg.Retry.ExpBase,
		MaxDelay:             cfg.Retry.MaxDelay.Std(),
		Jitter:               cfg.Retry.Jitter,
		RetryableStatusCodes: cfg.Retry.RetryableStatusCodes,
	}

	stageModel, routerModel, err := buildModels(cfg)
	if err != nil {
		slog.Error("Failed to initialize models", "error", err)
		os.Exit(1)
	}
	stageModel = model.WithRetry(stageModel, retryPolicy, logger)
	routerModel = model.WithRetry(routerModel, retryPolicy, logger)

	chatLog, err := chatlog.NewSQLite(cfg.ChatLog.Path, func(o *chatlog.Options) {
		o.MaxOpenConns = cfg.ChatLog.MaxOpenConns
		o.MaxIdleConns = cfg.ChatLog.MaxIdleConns
		o.ConnMaxLifetime = cfg.ChatLog.ConnMaxLifetime.Std()
	})
	if err != nil {
		slog.Error("Failed to initialize chat log database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := chatLog.Close(); closeErr != nil {
			slog.Error("Failed to close chat log database", "error", closeErr)
		}
	}()
	slog.Info("Chat log database connected", "path", cfg.ChatLog.Path)

	memStore, err := buildMemoryStore(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize memory store", "error", err)
		os.Exit(1)
	}
	slog.Info("Memory store initialized", "backend", cfg.Memory.Backend)

	registry := platewise.DefaultRegistry(func(o *tool.FoodToolOptions) {
		o.NutritionixAppID = os.Getenv("NUTRITIONIX_APP_ID")
		o.NutritionixAPIKey = os.Getenv("NUTRITIONIX_API_KEY")
		o.SpoonacularAPIKey = os.Getenv("SPOONACULAR_API_KEY")
		o.USDAAPIKey = os.Getenv("USDA_API_KEY")
	})

	app, err := platewise.New(stageModel, func(o *platewise.Options) {
		o.App = cfg.App
		o.RouterModel = routerModel
		o.MaxModelCalls = cfg.Models.MaxModelCalls
		o.PromptDir = cfg.Prompts.Dir
		o.Registry = registry
		o.MemoryStore = memStore
		o.ChatLogStore = chatLog
		o.Logger = logger
	})
	if err != nil {
		slog.Error("Failed to assemble application", "error", err)
		os.Exit(1)
	}

	handler := server.New(app, func(o *server.Options) {
		o.RequestTimeout = cfg.Server.RequestTimeout.Std()
		o.Logger = logger
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout.Std() + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// buildModels creates the stage and router models for the configured
// provider. Both share one underlying client; the SDKs read API keys from the
// environment.
func buildModels(cfg config.Config) (model.Model, model.Model, error) {
	switch cfg.Models.Provider {
	case "openai":
		stage := openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.Models.StageModel
			o.Temperature = cfg.Models.Temperature
			o.MaxCompletionTokens = cfg.Models.MaxTokens
		})
		rtr := openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.Models.RouterModel
			o.Temperature = 0
		})
		return stage, rtr, nil
	case "anthropic":
		stage := anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicModel(cfg.Models.StageModel)
			o.Temperature = cfg.Models.Temperature
			o.MaxTokens = cfg.Models.MaxTokens
		})
		rtr := anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicModel(cfg.Models.RouterModel)
			o.Temperature = 0
		})
		return stage, rtr, nil
	default:
		return nil, nil, errors.New("unknown model provider " + cfg.Models.Provider)
	}
}

func anthropicModel(id string) anthropicsdk.Model {
	return anthropicsdk.Model(id)
}

// buildMemoryStore creates the configured memory backend. Both backends embed
// through OpenAI; recall quality depends on a consistent embedding space, so
// the embedder is not switched with the chat provider.
func buildMemoryStore(cfg config.Config, logger logging.Logger) (core.MemoryStore, error) {
	embedder := openai.NewEmbedder(func(o *openai.EmbedderOptions) {
		o.Model = cfg.Models.EmbeddingModel
	})

	switch cfg.Memory.Backend {
	case "weaviate":
		store, err := weaviatestore.NewFromConfig(
			cfg.Memory.Weaviate.Host, cfg.Memory.Weaviate.Scheme, embedder,
			func(o *weaviatestore.Options) {
				o.Class = cfg.Memory.Weaviate.Class
				o.Logger = logger
			},
		)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return memory.NewInMemoryStore(embedder), nil
	}
}
