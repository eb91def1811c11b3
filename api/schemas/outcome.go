package schemas

import "time"

// TaskStatus is the final classification of a task run.
type TaskStatus string

const (
	TaskSucceeded      TaskStatus = "succeeded"
	TaskPartiallyDone  TaskStatus = "partially_succeeded"
	TaskFailed         TaskStatus = "failed"
	TaskAborted        TaskStatus = "aborted"
	TaskPlanningFailed TaskStatus = "planning_failed"
)

// StepRecord archives one step's terminal state into the task history. Steps
// injected by a correction keep the index of the step they repair and are
// disambiguated by a non-zero SubIndex.
type StepRecord struct {
	Index          int                 `json:"index"`
	SubIndex       int                 `json:"sub_index,omitempty"`
	Step           Step                `json:"step"`
	Status         string              `json:"status"`
	RetryCount     int                 `json:"retry_count"`
	LastError      string              `json:"last_error,omitempty"`
	ReasoningNotes []string            `json:"reasoning_notes,omitempty"`
	Result         *ActionResult       `json:"result,omitempty"`
	Verification   *VerificationResult `json:"verification,omitempty"`
	Injected       bool                `json:"injected,omitempty"`
}

// TaskOutcome is returned to the caller after a run. History always contains
// every step that was dispatched, in dispatch order, so failures remain
// explainable.
type TaskOutcome struct {
	TaskID    string        `json:"task_id"`
	Task      string        `json:"task"`
	Status    TaskStatus    `json:"status"`
	Summary   string        `json:"summary"`
	History   []StepRecord  `json:"history"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ProgressUpdate is the read-only feed consumed by observers (CLI printer,
// overlay). Observers never mutate loop state.
type ProgressUpdate struct {
	TaskID    string    `json:"task_id"`
	StepIndex int       `json:"step_index"`
	SubIndex  int       `json:"sub_index,omitempty"`
	Total     int       `json:"total"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
