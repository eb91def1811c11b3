package agent

import (
	"fmt"

	"github.com/xvetrov/deskpilot/api/schemas"
)

// StepStatus is the lifecycle state of one step under execution.
type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepExecuting  StepStatus = "EXECUTING"
	StepVerifying  StepStatus = "VERIFYING"
	StepSucceeded  StepStatus = "SUCCEEDED"
	StepFailed     StepStatus = "FAILED"
	StepCorrecting StepStatus = "CORRECTING"
	StepAborted    StepStatus = "ABORTED"
)

// legalTransitions encodes the step state machine. SUCCEEDED and ABORTED are
// terminal; FAILED is terminal only once retry and correction budgets are
// spent, which the loop decides.
var legalTransitions = map[StepStatus][]StepStatus{
	StepPending:    {StepExecuting, StepAborted},
	StepExecuting:  {StepVerifying, StepSucceeded, StepFailed, StepAborted},
	StepVerifying:  {StepSucceeded, StepFailed, StepAborted},
	StepFailed:     {StepExecuting, StepCorrecting, StepAborted},
	StepCorrecting: {StepPending, StepFailed, StepAborted},
}

// StepContext is the mutable execution record wrapping one step while the
// loop processes it.
type StepContext struct {
	Step     schemas.Step
	Index    int
	Injected bool

	// SubIndex orders injected steps under the index of the step they were
	// injected to repair; zero for planned steps.
	SubIndex int

	Status         StepStatus
	RetryCount     int
	LastError      string
	ReasoningNotes []string
	Result         *schemas.ActionResult
	Verification   *schemas.VerificationResult

	// Corrected marks that the single AI correction for this step has been
	// spent.
	Corrected bool
}

// NewStepContext wraps a planned step for execution.
func NewStepContext(index int, step schemas.Step, injected bool) *StepContext {
	return &StepContext{
		Step:     step,
		Index:    index,
		Injected: injected,
		Status:   StepPending,
	}
}

// Transition moves the context to a new status, rejecting moves the state
// machine does not permit.
func (c *StepContext) Transition(to StepStatus) error {
	for _, allowed := range legalTransitions[c.Status] {
		if allowed == to {
			c.Status = to
			return nil
		}
	}
	return fmt.Errorf("illegal step transition %s -> %s", c.Status, to)
}

// AddNote appends diagnostic commentary; notes are append-only and survive
// retries and corrections.
func (c *StepContext) AddNote(note string) {
	c.ReasoningNotes = append(c.ReasoningNotes, note)
}

// Record archives the context into the task history shape.
func (c *StepContext) Record() schemas.StepRecord {
	return schemas.StepRecord{
		Index:          c.Index,
		SubIndex:       c.SubIndex,
		Step:           c.Step,
		Status:         string(c.Status),
		RetryCount:     c.RetryCount,
		LastError:      c.LastError,
		ReasoningNotes: c.ReasoningNotes,
		Result:         c.Result,
		Verification:   c.Verification,
		Injected:       c.Injected,
	}
}
