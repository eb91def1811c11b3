package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/config"
)

// NewClient is a factory that creates an LLMClient for one model entry.
func NewClient(cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	case config.ProviderOllama:
		return NewOllamaClient(cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q. Supported: [%s, %s, %s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderAnthropic, config.ProviderOllama, config.ProviderOpenAI)
	}
}

// NewRouterFromConfig builds the tiered router from the llm configuration
// section. The fast and powerful tier names must each resolve to a model
// entry, either by map key or by the entry's model name.
func NewRouterFromConfig(cfg config.LLMRouterConfig, logger *zap.Logger) (*Router, error) {
	fastCfg, err := modelConfigFor(cfg, cfg.DefaultFastModel)
	if err != nil {
		return nil, fmt.Errorf("fast tier: %w", err)
	}
	powerfulCfg, err := modelConfigFor(cfg, cfg.DefaultPowerfulModel)
	if err != nil {
		return nil, fmt.Errorf("powerful tier: %w", err)
	}

	fastClient, err := NewClient(fastCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("fast tier: %w", err)
	}
	powerfulClient, err := NewClient(powerfulCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("powerful tier: %w", err)
	}

	return NewRouter(logger, fastClient, powerfulClient, cfg.RequestsPerMinute)
}

func modelConfigFor(cfg config.LLMRouterConfig, name string) (config.LLMModelConfig, error) {
	if m, ok := cfg.Models[name]; ok {
		if m.Model == "" {
			m.Model = name
		}
		return m, nil
	}
	for _, m := range cfg.Models {
		if m.Model == name {
			return m, nil
		}
	}
	return config.LLMModelConfig{}, fmt.Errorf("no model configuration found for %q", name)
}
