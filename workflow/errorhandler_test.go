package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stepflow-io/stepflow/types"
)

func errorPolicyWorkflow(t *testing.T) *Workflow {
	t.Helper()
	wf, err := NewWorkflowBuilder("wf-errors", "error policies").
		AddStep("fails", "fail policy").Command("false").OnFail().Done().
		AddStep("skips", "skip policy").Command("false").OnSkip().Done().
		AddStep("retries", "retry policy").Command("false").OnRetry(3, 100).Done().
		AddStep("rolls", "rollback policy").Command("false").OnRollback().Done().
		AddStep("unset", "default policy").Command("false").Done().
		Build()
	require.NoError(t, err)
	return wf
}

func TestHandleErrorPolicies(t *testing.T) {
	wf := errorPolicyWorkflow(t)
	handler := NewErrorHandler(zaptest.NewLogger(t))

	cases := []struct {
		stepID     string
		wantStatus StepStatus
		wantError  string
	}{
		{"fails", StepFailed, "boom"},
		{"skips", StepSkipped, ""},
		{"retries", StepFailed, "boom"},
		{"rolls", StepFailed, "boom"},
		// Empty on_error type behaves as fail.
		{"unset", StepFailed, "boom"},
	}

	for _, tc := range cases {
		t.Run(tc.stepID, func(t *testing.T) {
			sm := NewStateManager(zaptest.NewLogger(t))
			state := sm.CreateState(wf)

			require.NoError(t, handler.HandleError(wf, state, tc.stepID, "boom"))

			result, ok := state.Result(tc.stepID)
			require.True(t, ok)
			assert.Equal(t, tc.wantStatus, result.Status)
			assert.Equal(t, tc.wantError, result.Error)
		})
	}
}

func TestHandleErrorValidation(t *testing.T) {
	wf := errorPolicyWorkflow(t)
	handler := NewErrorHandler(zaptest.NewLogger(t))
	sm := NewStateManager(zaptest.NewLogger(t))
	state := sm.CreateState(wf)

	err := handler.HandleError(nil, state, "fails", "boom")
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))

	err = handler.HandleError(wf, nil, "fails", "boom")
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))

	err = handler.HandleError(wf, state, "missing", "boom")
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
}

func TestCaptureErrorAndDetails(t *testing.T) {
	wf := errorPolicyWorkflow(t)
	handler := NewErrorHandler(zaptest.NewLogger(t))
	sm := NewStateManager(zaptest.NewLogger(t))
	state := sm.CreateState(wf)

	require.NoError(t, handler.CaptureError(state, "fails", "TimeoutError",
		"command exceeded deadline", "goroutine 1 [running]:\nmain.run()"))

	details, ok := handler.GetErrorDetails(state, "fails")
	require.True(t, ok)
	assert.Contains(t, details, "TimeoutError")
	assert.Contains(t, details, "command exceeded deadline")
	assert.Contains(t, details, "goroutine 1 [running]:")

	assert.True(t, handler.HasError(state, "fails"))
	assert.False(t, handler.HasError(state, "skips"))
}

func TestCaptureErrorDefaultsType(t *testing.T) {
	handler := NewErrorHandler(zaptest.NewLogger(t))
	wf := errorPolicyWorkflow(t)
	state := NewStateManager(zaptest.NewLogger(t)).CreateState(wf)

	require.NoError(t, handler.CaptureError(state, "fails", "", "it broke", ""))

	stepErr := state.StepErrors["fails"]
	require.NotNil(t, stepErr)
	assert.Equal(t, string(types.ErrStepFailure), stepErr.Type)
	assert.False(t, stepErr.CapturedAt.IsZero())
}

func TestCaptureErrorValidation(t *testing.T) {
	handler := NewErrorHandler(zaptest.NewLogger(t))

	err := handler.CaptureError(nil, "s", "T", "m", "")
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))

	wf := errorPolicyWorkflow(t)
	state := NewStateManager(zaptest.NewLogger(t)).CreateState(wf)
	err = handler.CaptureError(state, "", "T", "m", "")
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
}

func TestGetErrorDetailsFallsBackToResultError(t *testing.T) {
	wf := errorPolicyWorkflow(t)
	handler := NewErrorHandler(zaptest.NewLogger(t))
	state := NewStateManager(zaptest.NewLogger(t)).CreateState(wf)

	require.NoError(t, handler.HandleError(wf, state, "fails", "exit status 1"))

	details, ok := handler.GetErrorDetails(state, "fails")
	require.True(t, ok)
	assert.Equal(t, "exit status 1", details)

	_, ok = handler.GetErrorDetails(state, "never-ran")
	assert.False(t, ok)
}

func TestSkippedStepReportsNoError(t *testing.T) {
	wf := errorPolicyWorkflow(t)
	handler := NewErrorHandler(zaptest.NewLogger(t))
	state := NewStateManager(zaptest.NewLogger(t)).CreateState(wf)

	require.NoError(t, handler.HandleError(wf, state, "skips", "transient glitch"))

	assert.False(t, handler.HasError(state, "skips"))
	_, ok := handler.GetErrorDetails(state, "skips")
	assert.False(t, ok)
}
