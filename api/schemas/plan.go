package schemas

// Step is one planned unit of work as produced by the planner. The JSON tags
// define the wire shape parsed out of model output, so they must stay in sync
// with the planning prompt.
type Step struct {
	// Action is a name into the action registry (e.g. "click", "type_text").
	Action string `json:"action"`

	// Target is the primary operand: a window title, an element description,
	// a "x,y" coordinate pair, text to type, a key combination.
	Target string `json:"target"`

	// Args holds optional named arguments (x, y, text, seconds, ...).
	Args map[string]any `json:"parameters,omitempty"`

	// Rationale is the planner's justification for the step.
	Rationale string `json:"rationale,omitempty"`

	// ExpectedOutcome, when set, is the verification hint checked by AI
	// vision after the action reports success.
	ExpectedOutcome string `json:"expected_outcome,omitempty"`
}

// Plan is the ordered step list produced for one task.
type Plan struct {
	Understood      bool   `json:"understood"`
	Clarification   string `json:"clarification_needed,omitempty"`
	Summary         string `json:"task_summary,omitempty"`
	Steps           []Step `json:"steps"`
	SuccessCriteria string `json:"success_criteria,omitempty"`

	// AllowPartial permits the loop to continue past a step that stays
	// failed after correction, ending the task as partially succeeded.
	AllowPartial bool `json:"allow_partial,omitempty"`
}

// CorrectionDecision is the model's answer when a step has exhausted its
// retries: revised arguments for the same step, steps to inject ahead of it,
// or an instruction to abandon it.
type CorrectionDecision struct {
	RevisedTarget string         `json:"revised_target,omitempty"`
	RevisedArgs   map[string]any `json:"revised_parameters,omitempty"`
	InjectedSteps []Step         `json:"injected_steps,omitempty"`
	Abandon       bool           `json:"abandon,omitempty"`
	Analysis      string         `json:"analysis,omitempty"`
}

// VerificationResult is the structured outcome of an AI vision check.
type VerificationResult struct {
	Success       bool   `json:"success"`
	Issue         string `json:"issue,omitempty"`
	ObservedState string `json:"observed_state,omitempty"`
}

// EnvironmentContext is the desktop snapshot handed to the planner so it can
// ground the plan in what is actually on screen.
type EnvironmentContext struct {
	ActiveWindow string   `json:"active_window"`
	OpenWindows  []string `json:"open_windows"`
	ScreenWidth  int      `json:"screen_width"`
	ScreenHeight int      `json:"screen_height"`
	Locale       string   `json:"locale,omitempty"`
}
