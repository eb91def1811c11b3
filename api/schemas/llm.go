package schemas

import "context"

// ModelTier selects which class of model a request should be routed to.
// Fast models handle cheap disambiguation work; powerful models handle
// planning, correction and vision.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions carries per-request generation knobs.
type GenerationOptions struct {
	Temperature     float32 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
}

// GenerationRequest is the provider-agnostic prompt envelope. Images are
// raw PNG bytes attached for multimodal (vision) requests; providers that
// cannot accept images must return an error rather than silently drop them.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Images       [][]byte          `json:"-"`
	Options      GenerationOptions `json:"options"`
	Tier         ModelTier         `json:"tier"`
}

// LLMClient is the minimal contract every model provider implements.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
