package workflow

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stepflow-io/stepflow/internal/metrics"
	"github.com/stepflow-io/stepflow/types"
)

// ErrorHandler dispatches on a failed step's configured on_error policy and
// captures structured errors. A step's business-logic failure is recorded
// as data, never raised; the configured policy determines what happens
// next.
type ErrorHandler struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewErrorHandler creates an error handler.
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger: logger.With(zap.String("component", "error_handler")),
	}
}

// WithMetrics attaches a metrics collector.
func (h *ErrorHandler) WithMetrics(c *metrics.Collector) *ErrorHandler {
	h.metrics = c
	return h
}

// HandleError executes exactly one branch of the failing step's on_error
// policy:
//
//   - fail: the step's result becomes failed with message as its error
//   - skip: the step's result becomes skipped; downstream dependency
//     satisfaction is the executor's policy decision
//   - retry: the step's result becomes failed; re-invocation and backoff
//     scheduling stay with the caller via RetryState
//   - rollback: the step's result becomes failed, signaling the caller to
//     invoke the RollbackManager
func (h *ErrorHandler) HandleError(wf *Workflow, state *WorkflowState, stepID, message string) error {
	if wf == nil || state == nil {
		return types.NewError(types.ErrValidation, "workflow and state are required")
	}
	step, ok := wf.Step(stepID)
	if !ok {
		return types.Errorf(types.ErrNotFound, "step %q not found in workflow %q", stepID, wf.ID)
	}

	result := h.ensureResult(state, stepID)

	action := step.OnError.Type
	switch action {
	case ErrorActionFail, "":
		action = ErrorActionFail
		result.Status = StepFailed
		result.Error = message

	case ErrorActionSkip:
		result.Status = StepSkipped
		result.Error = ""

	case ErrorActionRetry:
		result.Status = StepFailed
		result.Error = message
		if h.metrics != nil {
			h.metrics.RecordRetry()
		}

	case ErrorActionRollback:
		result.Status = StepFailed
		result.Error = message

	default:
		return types.Errorf(types.ErrValidation, "unknown error action %q on step %q", step.OnError.Type, stepID)
	}

	state.UpdatedAt = time.Now().UTC()

	if h.metrics != nil {
		h.metrics.RecordStepResult(string(result.Status), 0)
	}

	h.logger.Warn("step error handled",
		zap.String("workflow_id", wf.ID),
		zap.String("step_id", stepID),
		zap.String("action", string(action)),
		zap.String("error", message))

	return nil
}

// CaptureError stores a structured error for the step. Pass an empty stack
// trace when none is available.
func (h *ErrorHandler) CaptureError(state *WorkflowState, stepID, errorType, message, stackTrace string) error {
	if state == nil {
		return types.NewError(types.ErrValidation, "workflow state is nil")
	}
	if stepID == "" {
		return types.NewError(types.ErrValidation, "step id is required")
	}

	if state.StepErrors == nil {
		state.StepErrors = make(map[string]*StepError)
	}
	if errorType == "" {
		errorType = string(types.ErrStepFailure)
	}
	state.StepErrors[stepID] = &StepError{
		Type:       errorType,
		Message:    message,
		StackTrace: stackTrace,
		CapturedAt: time.Now().UTC(),
	}
	state.UpdatedAt = time.Now().UTC()

	h.logger.Debug("step error captured",
		zap.String("step_id", stepID),
		zap.String("error_type", errorType))

	return nil
}

// GetErrorDetails returns a single string carrying the captured error's
// type, message, and stack trace (when present). Falls back to the step
// result's error text when no structured error was captured.
func (h *ErrorHandler) GetErrorDetails(state *WorkflowState, stepID string) (string, bool) {
	if state == nil {
		return "", false
	}
	if stepErr, ok := state.StepErrors[stepID]; ok {
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s", stepErr.Type, stepErr.Message)
		if stepErr.StackTrace != "" {
			fmt.Fprintf(&b, "\nstack trace:\n%s", stepErr.StackTrace)
		}
		return b.String(), true
	}
	if result, ok := state.StepResults[stepID]; ok && result.Error != "" {
		return result.Error, true
	}
	return "", false
}

// HasError reports whether the step has a captured structured error or a
// failed result with error text.
func (h *ErrorHandler) HasError(state *WorkflowState, stepID string) bool {
	if state == nil {
		return false
	}
	if _, ok := state.StepErrors[stepID]; ok {
		return true
	}
	if result, ok := state.StepResults[stepID]; ok {
		return result.Error != ""
	}
	return false
}

func (h *ErrorHandler) ensureResult(state *WorkflowState, stepID string) *StepResult {
	if state.StepResults == nil {
		state.StepResults = make(map[string]*StepResult)
	}
	result, ok := state.StepResults[stepID]
	if !ok {
		result = &StepResult{Status: StepPending}
		state.StepResults[stepID] = result
	}
	return result
}
