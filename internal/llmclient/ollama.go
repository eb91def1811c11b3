package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/config"
)

// OllamaClient implements schemas.LLMClient against a local or remote Ollama
// server. No API key involved; the endpoint defaults to the OLLAMA_HOST
// environment convention.
type OllamaClient struct {
	client *api.Client
	config config.LLMModelConfig
	logger *zap.Logger
}

// NewOllamaClient initializes the client.
func NewOllamaClient(cfg config.LLMModelConfig, logger *zap.Logger) (*OllamaClient, error) {
	var client *api.Client
	if cfg.Endpoint != "" {
		base, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama endpoint %q: %w", cfg.Endpoint, err)
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("creating ollama client from environment: %w", err)
		}
	}

	return &OllamaClient{
		client: client,
		config: cfg,
		logger: logger.Named("llm_client.ollama"),
	}, nil
}

// Generate runs a non-streaming generation and concatenates the response.
func (c *OllamaClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	stream := false
	genReq := &api.GenerateRequest{
		Model:  c.config.Model,
		Prompt: req.UserPrompt,
		System: req.SystemPrompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": float64(req.Options.Temperature),
		},
	}
	if req.Options.ForceJSONFormat {
		genReq.Format = json.RawMessage(`"json"`)
	}
	for _, img := range req.Images {
		genReq.Images = append(genReq.Images, api.ImageData(img))
	}

	var sb strings.Builder
	err := c.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generation failed: %w", err)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("ollama returned an empty response")
	}

	c.logger.Info("LLM generation complete (Ollama)", zap.String("model", c.config.Model))
	return sb.String(), nil
}
