package llmclient

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/config"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient implements schemas.LLMClient on top of the official
// Anthropic SDK.
type AnthropicClient struct {
	client *anthropic.Client
	config config.LLMModelConfig
	logger *zap.Logger
}

// NewAnthropicClient initializes the client.
func NewAnthropicClient(cfg config.LLMModelConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API Key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		config: cfg,
		logger: logger.Named("llm_client.anthropic"),
	}, nil
}

// Generate sends the prompts through the Messages API. ForceJSONFormat has no
// native switch here; the prompts carry the JSON instruction and the parser
// downstream tolerates prose around the payload.
func (c *AnthropicClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(req.UserPrompt),
	}
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(img)))
	}

	maxTokens := c.config.MaxTokens
	if req.Options.MaxTokens > 0 {
		maxTokens = req.Options.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(c.config.Model),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		}),
		Temperature: anthropic.F(float64(req.Options.Temperature)),
	}
	if req.SystemPrompt != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(req.SystemPrompt),
		})
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if len(msg.Content) == 0 {
		return "", fmt.Errorf("anthropic API returned empty content (stop reason: %s)", msg.StopReason)
	}

	c.logger.Info("LLM generation complete (Anthropic)",
		zap.String("model", c.config.Model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return msg.Content[0].Text, nil
}
