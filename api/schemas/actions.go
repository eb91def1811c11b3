package schemas

import "time"

// ActionResult is the normalized telemetry record for one executor
// invocation. Every failure mode (unknown action, bad arguments, automation
// fault, timeout) is expressed through Success=false and Message; the
// executor never lets a fault escape as a panic or raw error.
type ActionResult struct {
	Action     string         `json:"action"`
	Target     string         `json:"target,omitempty"`
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	// ActionSuggestion is set only when the requested action name is not
	// registered; it names the closest registered alternative.
	ActionSuggestion string `json:"action_suggestion,omitempty"`
}

// Duration is always derived from the timestamps, never trusted from the
// caller, and never negative.
func (r ActionResult) Duration() time.Duration {
	d := r.FinishedAt.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}
