// Package config loads and validates the YAML parameter file that wires the
// process: model selection, retry tuning, prompt directory, store settings and
// the HTTP listen address. Secrets (API keys) stay in the environment and are
// read by cmd, never by this package.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" or "5m" decode
// directly. yaml.v3 has no native duration support.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler accepting Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)

	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Error reports an invalid or unreadable configuration. Configuration errors
// are fatal at startup; the process must not come up half-configured.
type Error struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

// ServerConfig holds the HTTP boundary settings.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	RequestTimeout  Duration `yaml:"request_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// ModelConfig selects the provider and model ids used by the router and the
// pipeline stages.
type ModelConfig struct {
	Provider       string  `yaml:"provider"` // "openai" or "anthropic"
	RouterModel    string  `yaml:"router_model"`
	StageModel     string  `yaml:"stage_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int64   `yaml:"max_tokens"`
	MaxModelCalls  int     `yaml:"max_model_calls"`
}

// RetryConfig tunes the model invocation retry policy.
type RetryConfig struct {
	Attempts             int      `yaml:"attempts"`
	InitialDelay         Duration `yaml:"initial_delay"`
	ExpBase              float64  `yaml:"exp_base"`
	MaxDelay             Duration `yaml:"max_delay"`
	Jitter               float64  `yaml:"jitter"`
	RetryableStatusCodes []int    `yaml:"retryable_status_codes"`
}

// PromptConfig locates per-stage instruction templates.
type PromptConfig struct {
	Dir string `yaml:"dir"`
}

// ChatLogConfig configures the relational chat history store.
type ChatLogConfig struct {
	Path            string   `yaml:"path"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

// WeaviateConfig configures the durable vector memory backend.
type WeaviateConfig struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme"`
	Class  string `yaml:"class"`
}

// MemoryConfig selects and configures the memory backend.
type MemoryConfig struct {
	Backend  string         `yaml:"backend"` // "memory" or "weaviate"
	Weaviate WeaviateConfig `yaml:"weaviate"`
}

// Config is the root parameter document.
type Config struct {
	App     string        `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	Models  ModelConfig   `yaml:"models"`
	Retry   RetryConfig   `yaml:"retry"`
	Prompts PromptConfig  `yaml:"prompts"`
	ChatLog ChatLogConfig `yaml:"chatlog"`
	Memory  MemoryConfig  `yaml:"memory"`
}

// Default returns the baseline configuration applied before the YAML document
// is merged on top.
func Default() Config {
	return Config{
		App: "platewise",
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  Duration(120 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Models: ModelConfig{
			Provider:       "openai",
			RouterModel:    "gpt-4o-mini",
			StageModel:     "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.7,
			MaxTokens:      4096,
			MaxModelCalls:  25,
		},
		Retry: RetryConfig{
			Attempts:             5,
			InitialDelay:         Duration(time.Second),
			ExpBase:              2,
			MaxDelay:             Duration(30 * time.Second),
			Jitter:               0.25,
			RetryableStatusCodes: []int{429, 500, 503, 504},
		},
		Prompts: PromptConfig{Dir: "prompts"},
		ChatLog: ChatLogConfig{
			Path:            "data/platewise.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(5 * time.Minute),
		},
		Memory: MemoryConfig{
			Backend: "memory",
			Weaviate: WeaviateConfig{
				Scheme: "http",
				Class:  "UserProfileFact",
			},
		},
	}
}

// Load reads and validates the YAML parameter file at path. Missing keys fall
// back to Default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &Error{Field: "file", Message: fmt.Sprintf("read %s: %v", path, err)}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &Error{Field: "file", Message: fmt.Sprintf("parse %s: %v", path, err)}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints. The first violation is returned.
func (c Config) Validate() error {
	if c.App == "" {
		return &Error{Field: "app", Message: "must not be empty"}
	}

	switch c.Models.Provider {
	case "openai", "anthropic":
	default:
		return &Error{Field: "models.provider", Message: fmt.Sprintf("unknown provider %q", c.Models.Provider)}
	}

	if c.Models.RouterModel == "" || c.Models.StageModel == "" {
		return &Error{Field: "models", Message: "router_model and stage_model must be set"}
	}

	if c.Retry.Attempts < 1 {
		return &Error{Field: "retry.attempts", Message: "must be at least 1"}
	}

	if c.Retry.ExpBase < 1 {
		return &Error{Field: "retry.exp_base", Message: "must be >= 1"}
	}

	if c.Retry.InitialDelay <= 0 || c.Retry.MaxDelay < c.Retry.InitialDelay {
		return &Error{Field: "retry", Message: "initial_delay must be positive and max_delay >= initial_delay"}
	}

	if c.Retry.Jitter < 0 || c.Retry.Jitter >= 1 {
		return &Error{Field: "retry.jitter", Message: "must be in [0, 1)"}
	}

	switch c.Memory.Backend {
	case "memory":
	case "weaviate":
		if c.Memory.Weaviate.Host == "" {
			return &Error{Field: "memory.weaviate.host", Message: "required for weaviate backend"}
		}
	default:
		return &Error{Field: "memory.backend", Message: fmt.Sprintf("unknown backend %q", c.Memory.Backend)}
	}

	if c.ChatLog.Path == "" {
		return &Error{Field: "chatlog.path", Message: "must not be empty"}
	}

	return nil
}
