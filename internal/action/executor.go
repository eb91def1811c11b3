package action

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/automation"
	"github.com/xvetrov/deskpilot/internal/config"
)

// Executor runs exactly one action per call and converts every failure mode
// into a structured result. It never retries; retry policy belongs to the
// loop above it.
type Executor struct {
	registry *Registry
	handlers map[Kind]HandlerFunc
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExecutor wires the registry's vocabulary to the automation driver and
// the locator.
func NewExecutor(registry *Registry, driver automation.Driver, resolver TargetResolver, agentCfg config.AgentConfig, autoCfg config.AutomationConfig, locale string, logger *zap.Logger) *Executor {
	h := &handlers{
		driver:        driver,
		resolver:      resolver,
		screenshotDir: autoCfg.ScreenshotDir,
		locale:        locale,
		logger:        logger.Named("action"),
	}
	return &Executor{
		registry: registry,
		handlers: h.build(),
		timeout:  agentCfg.ActionTimeout,
		logger:   logger.Named("executor"),
	}
}

// Registry exposes the vocabulary for planner prompts and CLI listing.
func (e *Executor) Registry() *Registry {
	return e.registry
}

type handlerOutcome struct {
	metadata map[string]any
	err      error
}

// Execute runs one step's action under the per-action time budget. The
// returned result always carries both timestamps; duration is derived from
// them, never reported by the handler.
func (e *Executor) Execute(ctx context.Context, step schemas.Step) schemas.ActionResult {
	result := schemas.ActionResult{
		Action:    step.Action,
		Target:    step.Target,
		StartedAt: time.Now(),
	}

	kind, ok := e.registry.Resolve(step.Action)
	if !ok {
		// No automation side effect on an unknown name.
		result.FinishedAt = time.Now()
		result.Message = fmt.Sprintf("unknown action %q", step.Action)
		if suggestion := e.registry.Suggest(step.Action); suggestion != "" {
			result.ActionSuggestion = suggestion
			result.Message = fmt.Sprintf("unknown action %q, did you mean %q?", step.Action, suggestion)
		}
		return result
	}
	result.Action = string(kind)

	handler, ok := e.handlers[kind]
	if !ok {
		result.FinishedAt = time.Now()
		result.Message = fmt.Sprintf("action %q has no handler bound", kind)
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// The handler runs in its own goroutine so a stuck automation call can
	// be abandoned when the budget expires. The buffered channel lets the
	// abandoned goroutine finish without leaking.
	done := make(chan handlerOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handlerOutcome{err: fmt.Errorf("action panicked: %v", r)}
			}
		}()
		meta, err := handler(runCtx, Invocation{Kind: kind, Target: step.Target, Args: step.Args})
		done <- handlerOutcome{metadata: meta, err: err}
	}()

	select {
	case out := <-done:
		result.FinishedAt = time.Now()
		result.Metadata = out.metadata
		if out.err != nil {
			result.Message = out.err.Error()
			e.logger.Warn("Action failed",
				zap.String("action", string(kind)),
				zap.String("target", step.Target),
				zap.Error(out.err))
			return result
		}
		result.Success = true
		result.Message = fmt.Sprintf("%s completed", kind)
		return result

	case <-runCtx.Done():
		result.FinishedAt = time.Now()
		if ctx.Err() != nil {
			result.Message = fmt.Sprintf("action %q canceled: %v", kind, ctx.Err())
			return result
		}
		result.Metadata = map[string]any{"timed_out": true}
		result.Message = fmt.Sprintf("action %q timed out after %s", kind, e.timeout)
		e.logger.Warn("Action timed out",
			zap.String("action", string(kind)),
			zap.Duration("timeout", e.timeout))
		return result
	}
}
