package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestNewConfigFromViper_Defaults(t *testing.T) {
	cfg, err := NewConfigFromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "deskpilot", cfg.Logger.ServiceName)

	assert.Equal(t, 3, cfg.Agent.MaxRetries)
	assert.Equal(t, time.Second, cfg.Agent.RetryBackoffBase)
	assert.Equal(t, 1.5, cfg.Agent.RetryBackoffGrowth)
	assert.Equal(t, 6*time.Second, cfg.Agent.RetryBackoffMax)
	assert.Equal(t, 5*time.Minute, cfg.Agent.MaxTaskDuration)
	assert.Equal(t, 40, cfg.Agent.MaxTurns)
	assert.Equal(t, 30*time.Second, cfg.Agent.ActionTimeout)
	assert.True(t, cfg.Agent.VerifyActions)

	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.DefaultFastModel)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.DefaultPowerfulModel)
}

func TestNewDefaultConfig_PassesValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Agent.MaxRetries = -1 },
			wantErr: "max_retries",
		},
		{
			name:    "non-growing backoff",
			mutate:  func(c *Config) { c.Agent.RetryBackoffGrowth = 1.0 },
			wantErr: "retry_backoff_growth",
		},
		{
			name:    "zero base delay",
			mutate:  func(c *Config) { c.Agent.RetryBackoffBase = 0 },
			wantErr: "retry_backoff_base",
		},
		{
			name:    "zero turn budget",
			mutate:  func(c *Config) { c.Agent.MaxTurns = 0 },
			wantErr: "max_turns",
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.LLM.Models = map[string]LLMModelConfig{
					"bad": {Provider: "grok", Model: "x"},
				}
			},
			wantErr: "unknown provider",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewConfigFromViper_EnvAPIKey(t *testing.T) {
	t.Setenv("DESKPILOT_GEMINI_API_KEY", "test-key-123")

	v := newTestViper()
	v.Set("llm.models.gemini.provider", "gemini")
	v.Set("llm.models.gemini.model", "gemini-2.5-flash")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "test-key-123", cfg.LLM.Models["gemini"].APIKey)
}
