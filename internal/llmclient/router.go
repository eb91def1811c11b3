package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xvetrov/deskpilot/api/schemas"
)

// Router implements schemas.LLMClient and dispatches requests to the client
// registered for the request's tier. A shared rate limiter sits in front of
// both tiers because planning, correction, verification and AI window
// selection all draw on the same provider quota.
type Router struct {
	logger  *zap.Logger
	clients map[schemas.ModelTier]schemas.LLMClient
	limiter *rate.Limiter
}

// NewRouter creates a router with the given clients for each tier.
// requestsPerMinute bounds the combined request rate; zero disables limiting.
func NewRouter(logger *zap.Logger, fastClient, powerfulClient schemas.LLMClient, requestsPerMinute float64) (*Router, error) {
	if fastClient == nil || powerfulClient == nil {
		return nil, fmt.Errorf("both fast and powerful tier clients must be provided")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1)
	}

	return &Router{
		logger: logger.Named("llm_router"),
		clients: map[schemas.ModelTier]schemas.LLMClient{
			schemas.TierFast:     fastClient,
			schemas.TierPowerful: powerfulClient,
		},
		limiter: limiter,
	}, nil
}

// Generate selects the appropriate client based on the request's tier,
// defaulting to the powerful tier when unspecified.
func (r *Router) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	tier := req.Tier
	if tier == "" {
		tier = schemas.TierPowerful
	}

	client, ok := r.clients[tier]
	if !ok {
		return "", fmt.Errorf("no LLM client configured for tier: %s", tier)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter interrupted: %w", err)
	}

	r.logger.Debug("Routing LLM request", zap.String("tier", string(tier)))
	return client.Generate(ctx, req)
}
