package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Agent      AgentConfig      `mapstructure:"agent" yaml:"agent"`
	LLM        LLMRouterConfig  `mapstructure:"llm" yaml:"llm"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
}

// LoggerConfig controls the zap logger and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// AgentConfig bounds the adaptive execution loop.
type AgentConfig struct {
	// MaxRetries is the per-step retry ceiling before correction kicks in.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RetryBackoffBase and RetryBackoffGrowth define the retry delay
	// schedule base*growth^n (1s, 1.5s, 2.25s with the defaults), capped at
	// RetryBackoffMax.
	RetryBackoffBase   time.Duration `mapstructure:"retry_backoff_base" yaml:"retry_backoff_base"`
	RetryBackoffGrowth float64       `mapstructure:"retry_backoff_growth" yaml:"retry_backoff_growth"`
	RetryBackoffMax    time.Duration `mapstructure:"retry_backoff_max" yaml:"retry_backoff_max"`

	// MaxTaskDuration is the wall-clock deadline for a whole task.
	MaxTaskDuration time.Duration `mapstructure:"max_task_duration" yaml:"max_task_duration"`

	// MaxTurns caps how many step dispatches (including retries and
	// injected steps) a single task may consume.
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`

	// ActionTimeout bounds one automation routine invocation.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`

	// ActionDelay is the settle pause between successful steps.
	ActionDelay time.Duration `mapstructure:"action_delay" yaml:"action_delay"`

	// VerifyActions enables AI vision verification after input actions.
	VerifyActions bool `mapstructure:"verify_actions" yaml:"verify_actions"`
}

// LLMProvider defines the supported model providers.
type LLMProvider string

const (
	ProviderGemini    LLMProvider = "gemini"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderOllama    LLMProvider = "ollama"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	RequestsPerMinute    float64                   `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single model.
type LLMModelConfig struct {
	Provider      LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model         string            `mapstructure:"model" yaml:"model"`
	APIKey        string            `mapstructure:"api_key" yaml:"api_key"`
	Endpoint      string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float32           `mapstructure:"temperature" yaml:"temperature"`
	TopP          float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK          int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens     int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	SafetyFilters map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// AutomationConfig tunes the OS automation driver.
type AutomationConfig struct {
	TypingIntervalMs int           `mapstructure:"typing_interval_ms" yaml:"typing_interval_ms"`
	MouseSettle      time.Duration `mapstructure:"mouse_settle" yaml:"mouse_settle"`
	ScreenshotDir    string        `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "deskpilot")
	v.SetDefault("logger.log_file", "deskpilot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Agent loop --
	v.SetDefault("agent.max_retries", 3)
	v.SetDefault("agent.retry_backoff_base", "1s")
	v.SetDefault("agent.retry_backoff_growth", 1.5)
	v.SetDefault("agent.retry_backoff_max", "6s")
	v.SetDefault("agent.max_task_duration", "5m")
	v.SetDefault("agent.max_turns", 40)
	v.SetDefault("agent.action_timeout", "30s")
	v.SetDefault("agent.action_delay", "500ms")
	v.SetDefault("agent.verify_actions", true)

	// -- LLM --
	v.SetDefault("llm.default_fast_model", "gemini-2.5-flash")
	v.SetDefault("llm.default_powerful_model", "gemini-2.5-pro")
	v.SetDefault("llm.requests_per_minute", 30.0)

	// -- Automation --
	v.SetDefault("automation.typing_interval_ms", 50)
	v.SetDefault("automation.mouse_settle", "300ms")
	v.SetDefault("automation.screenshot_dir", defaultScreenshotDir())
}

func defaultScreenshotDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "screenshots"
	}
	return filepath.Join(home, ".deskpilot", "screenshots")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Sensitive values come from the environment, never the config file.
	v.BindEnv("llm.models.gemini.api_key", "DESKPILOT_GEMINI_API_KEY")
	v.BindEnv("llm.models.anthropic.api_key", "DESKPILOT_ANTHROPIC_API_KEY")
	v.BindEnv("llm.models.openai.api_key", "DESKPILOT_OPENAI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxRetries < 0 {
		return fmt.Errorf("agent.max_retries must not be negative")
	}
	if c.Agent.RetryBackoffGrowth <= 1.0 {
		return fmt.Errorf("agent.retry_backoff_growth must be greater than 1.0")
	}
	if c.Agent.RetryBackoffBase <= 0 {
		return fmt.Errorf("agent.retry_backoff_base must be a positive duration")
	}
	if c.Agent.MaxTaskDuration <= 0 {
		return fmt.Errorf("agent.max_task_duration must be a positive duration")
	}
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be a positive integer")
	}
	if c.Agent.ActionTimeout <= 0 {
		return fmt.Errorf("agent.action_timeout must be a positive duration")
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("llm.requests_per_minute must be positive")
	}
	for name, m := range c.LLM.Models {
		if m.Provider == "" {
			return fmt.Errorf("llm.models.%s.provider is required", name)
		}
		switch m.Provider {
		case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		default:
			return fmt.Errorf("llm.models.%s: unknown provider %q", name, m.Provider)
		}
	}
	return nil
}
