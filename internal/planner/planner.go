// Package planner is the model-facing side of the agent: it turns tasks into
// step lists and answers the loop's correction, verification and
// disambiguation questions.
package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/llmclient"
)

// maxInjectedSteps caps how many corrective steps one correction may add.
const maxInjectedSteps = 5

// PlanningError marks a task-level planning failure: the model was
// unreachable, produced garbage, or needs clarification. The loop reports
// these as planning failures instead of executing anything.
type PlanningError struct {
	Reason        string
	Clarification string
}

func (e *PlanningError) Error() string {
	if e.Clarification != "" {
		return fmt.Sprintf("planning failed: %s (clarification needed: %s)", e.Reason, e.Clarification)
	}
	return "planning failed: " + e.Reason
}

// Planner wraps the LLM router with the agent's prompt contracts.
type Planner struct {
	llm        schemas.LLMClient
	vocabulary []string
	logger     *zap.Logger
}

// New creates a Planner. vocabulary is the registry's canonical action list,
// embedded into the planning prompt.
func New(llm schemas.LLMClient, vocabulary []string, logger *zap.Logger) *Planner {
	return &Planner{
		llm:        llm,
		vocabulary: vocabulary,
		logger:     logger.Named("planner"),
	}
}

// Plan asks the powerful tier for an ordered step list. Every failure mode
// surfaces as a *PlanningError.
func (p *Planner) Plan(ctx context.Context, task string, env schemas.EnvironmentContext) (*schemas.Plan, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\n", task)
	fmt.Fprintf(&sb, "Action vocabulary: %s\n\n", strings.Join(p.vocabulary, ", "))
	fmt.Fprintf(&sb, "Environment:\n- active window: %s\n- screen: %dx%d\n", env.ActiveWindow, env.ScreenWidth, env.ScreenHeight)
	if env.Locale != "" {
		fmt.Fprintf(&sb, "- locale: %s\n", env.Locale)
	}
	if len(env.OpenWindows) > 0 {
		fmt.Fprintf(&sb, "- open windows:\n")
		for _, w := range env.OpenWindows {
			fmt.Fprintf(&sb, "  - %s\n", w)
		}
	}

	response, err := p.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: planningSystemPrompt,
		UserPrompt:   sb.String(),
		Options:      schemas.GenerationOptions{Temperature: 0.2, ForceJSONFormat: true},
		Tier:         schemas.TierPowerful,
	})
	if err != nil {
		return nil, &PlanningError{Reason: err.Error()}
	}

	plan, err := llmclient.ParseJSONResponse[schemas.Plan](response)
	if err != nil {
		return nil, &PlanningError{Reason: err.Error()}
	}
	if !plan.Understood {
		return nil, &PlanningError{Reason: "task not understood", Clarification: plan.Clarification}
	}
	if len(plan.Steps) == 0 {
		return nil, &PlanningError{Reason: "model returned an empty step list"}
	}

	p.logger.Info("Plan created",
		zap.String("summary", plan.Summary),
		zap.Int("steps", len(plan.Steps)))
	return plan, nil
}

// DecideCorrection consults the powerful tier after a step has exhausted its
// retries. Injected steps beyond the cap are dropped.
func (p *Planner) DecideCorrection(ctx context.Context, step schemas.Step, lastError string, notes []string, screenshot []byte) (*schemas.CorrectionDecision, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Failing step: action=%s target=%q parameters=%v\n", step.Action, step.Target, step.Args)
	fmt.Fprintf(&sb, "Last error: %s\n", lastError)
	if len(notes) > 0 {
		fmt.Fprintf(&sb, "Attempt history:\n")
		for _, n := range notes {
			fmt.Fprintf(&sb, "- %s\n", n)
		}
	}
	if len(screenshot) > 0 {
		sb.WriteString("A screenshot of the current desktop state is attached.\n")
	}

	req := schemas.GenerationRequest{
		SystemPrompt: correctionSystemPrompt,
		UserPrompt:   sb.String(),
		Options:      schemas.GenerationOptions{Temperature: 0.2, ForceJSONFormat: true},
		Tier:         schemas.TierPowerful,
	}
	if len(screenshot) > 0 {
		req.Images = [][]byte{screenshot}
	}

	response, err := p.llm.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("correction consultation failed: %w", err)
	}

	decision, err := llmclient.ParseJSONResponse[schemas.CorrectionDecision](response)
	if err != nil {
		return nil, fmt.Errorf("unparsable correction decision: %w", err)
	}
	if len(decision.InjectedSteps) > maxInjectedSteps {
		p.logger.Warn("Correction injected too many steps, truncating",
			zap.Int("requested", len(decision.InjectedSteps)),
			zap.Int("cap", maxInjectedSteps))
		decision.InjectedSteps = decision.InjectedSteps[:maxInjectedSteps]
	}
	return decision, nil
}

// VerifyStep runs the post-action vision check on the fast tier. A failing
// check is authoritative; a failing CHECKER is not, so transport or parse
// errors degrade to a pass rather than failing a step that already reported
// success.
func (p *Planner) VerifyStep(ctx context.Context, step schemas.Step, expected string, screenshot []byte) *schemas.VerificationResult {
	prompt := fmt.Sprintf("Action just performed: %s (target %q).\nExpected outcome: %s\nDoes the attached screenshot show the expected outcome?", step.Action, step.Target, expected)

	response, err := p.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: verificationSystemPrompt,
		UserPrompt:   prompt,
		Images:       [][]byte{screenshot},
		Options:      schemas.GenerationOptions{Temperature: 0.0, ForceJSONFormat: true},
		Tier:         schemas.TierFast,
	})
	if err != nil {
		p.logger.Warn("Step verification unavailable, assuming pass", zap.Error(err))
		return &schemas.VerificationResult{Success: true, ObservedState: "verification unavailable"}
	}

	result, err := llmclient.ParseJSONResponse[schemas.VerificationResult](response)
	if err != nil {
		p.logger.Warn("Unparsable verification result, assuming pass", zap.Error(err))
		return &schemas.VerificationResult{Success: true, ObservedState: "verification unparsable"}
	}
	return result
}

// VerifyCompletion judges the whole task against its success criteria from a
// final screenshot. Errors degrade to a pass like VerifyStep.
func (p *Planner) VerifyCompletion(ctx context.Context, task, criteria string, screenshot []byte) *schemas.VerificationResult {
	prompt := fmt.Sprintf("Task: %s\nSuccess criteria: %s\nDoes the attached screenshot show that the task goal was reached?", task, criteria)

	response, err := p.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: completionSystemPrompt,
		UserPrompt:   prompt,
		Images:       [][]byte{screenshot},
		Options:      schemas.GenerationOptions{Temperature: 0.0, ForceJSONFormat: true},
		Tier:         schemas.TierPowerful,
	})
	if err != nil {
		p.logger.Warn("Completion verification unavailable, assuming pass", zap.Error(err))
		return &schemas.VerificationResult{Success: true, ObservedState: "verification unavailable"}
	}

	result, err := llmclient.ParseJSONResponse[schemas.VerificationResult](response)
	if err != nil {
		p.logger.Warn("Unparsable completion verdict, assuming pass", zap.Error(err))
		return &schemas.VerificationResult{Success: true, ObservedState: "verification unparsable"}
	}
	return result
}

type windowChoice struct {
	Choice string `json:"choice"`
}

// ChooseWindow implements the locator's AI tier: pick one candidate title for
// a fuzzy (possibly cross-language) target. The fast tier suffices here.
func (p *Planner) ChooseWindow(ctx context.Context, target string, candidates []string, locale string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Requested target: %q\n", target)
	if locale != "" {
		fmt.Fprintf(&sb, "Desktop locale: %s\n", locale)
	}
	sb.WriteString("Open window titles:\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- %s\n", c)
	}

	response, err := p.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: windowChoiceSystemPrompt,
		UserPrompt:   sb.String(),
		Options:      schemas.GenerationOptions{Temperature: 0.0, ForceJSONFormat: true},
		Tier:         schemas.TierFast,
	})
	if err != nil {
		return "", fmt.Errorf("window selection failed: %w", err)
	}

	choice, err := llmclient.ParseJSONResponse[windowChoice](response)
	if err != nil {
		return "", fmt.Errorf("unparsable window selection: %w", err)
	}
	if choice.Choice == "" {
		return "", fmt.Errorf("model found no matching window for %q", target)
	}
	return choice.Choice, nil
}
