package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xvetrov/deskpilot/api/schemas"
)

func TestStepContext_LegalPath(t *testing.T) {
	sc := NewStepContext(0, schemas.Step{Action: "click"}, false)
	assert.Equal(t, StepPending, sc.Status)

	require.NoError(t, sc.Transition(StepExecuting))
	require.NoError(t, sc.Transition(StepVerifying))
	require.NoError(t, sc.Transition(StepSucceeded))
}

func TestStepContext_RetryAndCorrectionPath(t *testing.T) {
	sc := NewStepContext(0, schemas.Step{Action: "click"}, false)

	require.NoError(t, sc.Transition(StepExecuting))
	require.NoError(t, sc.Transition(StepFailed))
	require.NoError(t, sc.Transition(StepExecuting), "retry re-enters EXECUTING")
	require.NoError(t, sc.Transition(StepFailed))
	require.NoError(t, sc.Transition(StepCorrecting))
	require.NoError(t, sc.Transition(StepPending), "correction re-enters PENDING")
	require.NoError(t, sc.Transition(StepExecuting))
}

func TestStepContext_IllegalTransitionsRejected(t *testing.T) {
	tests := []struct {
		name string
		from StepStatus
		to   StepStatus
	}{
		{"pending to succeeded", StepPending, StepSucceeded},
		{"pending to verifying", StepPending, StepVerifying},
		{"succeeded is terminal", StepSucceeded, StepExecuting},
		{"aborted is terminal", StepAborted, StepPending},
		{"executing to correcting", StepExecuting, StepCorrecting},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc := NewStepContext(0, schemas.Step{}, false)
			sc.Status = tc.from
			err := sc.Transition(tc.to)
			require.Error(t, err)
			assert.Equal(t, tc.from, sc.Status, "status must not change on a rejected transition")
		})
	}
}

func TestStepContext_AbortFromAnyActiveState(t *testing.T) {
	for _, from := range []StepStatus{StepPending, StepExecuting, StepVerifying, StepFailed, StepCorrecting} {
		sc := NewStepContext(0, schemas.Step{}, false)
		sc.Status = from
		require.NoError(t, sc.Transition(StepAborted), "abort from %s", from)
	}
}

func TestStepContext_NotesAreAppendOnly(t *testing.T) {
	sc := NewStepContext(0, schemas.Step{}, false)
	sc.AddNote("first")
	sc.AddNote("second")
	assert.Equal(t, []string{"first", "second"}, sc.ReasoningNotes)
}

func TestStepContext_Record(t *testing.T) {
	sc := NewStepContext(3, schemas.Step{Action: "click", Target: "OK"}, true)
	sc.Status = StepFailed
	sc.RetryCount = 2
	sc.LastError = "no such element"
	sc.AddNote("attempt 1 failed")

	rec := sc.Record()
	assert.Equal(t, 3, rec.Index)
	assert.Equal(t, "FAILED", rec.Status)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Equal(t, "no such element", rec.LastError)
	assert.True(t, rec.Injected)
}
