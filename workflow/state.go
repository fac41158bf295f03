package workflow

import (
	"time"

	"go.uber.org/zap"

	"github.com/stepflow-io/stepflow/internal/metrics"
)

// WorkflowStatus represents the lifecycle status of a workflow run
type WorkflowStatus string

const (
	// StatusPending means the workflow has been created but not started
	StatusPending WorkflowStatus = "pending"
	// StatusRunning means the executor is driving the workflow forward
	StatusRunning WorkflowStatus = "running"
	// StatusWaitingApproval means a gated step is blocked on a human decision
	StatusWaitingApproval WorkflowStatus = "waiting_approval"
	// StatusCompleted means all steps finished
	StatusCompleted WorkflowStatus = "completed"
	// StatusFailed means a step failed and the run stopped
	StatusFailed WorkflowStatus = "failed"
	// StatusRolledBack means progress was reset by the RollbackManager
	StatusRolledBack WorkflowStatus = "rolled_back"
	// StatusPaused means the executor suspended the run
	StatusPaused WorkflowStatus = "paused"
)

// StepStatus represents the lifecycle status of a single step
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepRunning    StepStatus = "running"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
	StepFailed     StepStatus = "failed"
	StepRolledBack StepStatus = "rolled_back"
)

// StepResult records the outcome of one step execution.
type StepResult struct {
	Status StepStatus `json:"status"`
	// Output is the step's JSON output as produced by the executor and
	// later read by ConditionEvaluator via dotted-path lookup
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// StepError is a captured structured error for a failed step.
type StepError struct {
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	StackTrace string    `json:"stack_trace,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// WorkflowState tracks the execution progress of one workflow run.
//
// A WorkflowState is exclusively owned by one logical StateManager session
// per running workflow instance. Concurrent StartStep/CompleteStep calls on
// the same state must be serialized by the caller so that CompletedSteps is
// never observed torn against StepResults.
type WorkflowState struct {
	WorkflowID string         `json:"workflow_id"`
	Status     WorkflowStatus `json:"status"`
	// CurrentStep is the id of the step being executed; empty means none
	CurrentStep string `json:"current_step,omitempty"`
	// CompletedSteps grows monotonically during forward execution;
	// insertion order is completion order
	CompletedSteps []string               `json:"completed_steps"`
	StepResults    map[string]*StepResult `json:"step_results"`
	// StepErrors holds structured errors captured by ErrorHandler
	StepErrors map[string]*StepError `json:"step_errors,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Result returns the recorded result for a step.
func (s *WorkflowState) Result(stepID string) (*StepResult, bool) {
	r, ok := s.StepResults[stepID]
	return r, ok
}

// IsCompleted reports whether a step id is present in CompletedSteps.
func (s *WorkflowState) IsCompleted(stepID string) bool {
	for _, id := range s.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// DependenciesSatisfied reports whether every dependency of the step is
// present in CompletedSteps.
func (s *WorkflowState) DependenciesSatisfied(step *WorkflowStep) bool {
	for _, dep := range step.Dependencies {
		if !s.IsCompleted(dep) {
			return false
		}
	}
	return true
}

// StateManager creates and mutates WorkflowState instances. It validates
// nothing against the Workflow schema; unknown step ids get fresh result
// entries and schema validation stays with the caller.
type StateManager struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewStateManager creates a state manager.
func NewStateManager(logger *zap.Logger) *StateManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateManager{
		logger: logger.With(zap.String("component", "state_manager")),
	}
}

// WithMetrics attaches a metrics collector.
func (m *StateManager) WithMetrics(c *metrics.Collector) *StateManager {
	m.metrics = c
	return m
}

// CreateState creates a fresh pending state for the workflow.
func (m *StateManager) CreateState(wf *Workflow) *WorkflowState {
	now := time.Now().UTC()
	state := &WorkflowState{
		WorkflowID:     wf.ID,
		Status:         StatusPending,
		CompletedSteps: make([]string, 0, len(wf.Steps)),
		StepResults:    make(map[string]*StepResult, len(wf.Steps)),
		StepErrors:     make(map[string]*StepError),
		StartedAt:      now,
		UpdatedAt:      now,
	}

	m.logger.Debug("workflow state created",
		zap.String("workflow_id", wf.ID),
		zap.Int("steps", len(wf.Steps)))

	return state
}

// StartStep marks a step running and makes it the current step.
func (m *StateManager) StartStep(state *WorkflowState, stepID string) {
	state.CurrentStep = stepID
	result := m.ensureResult(state, stepID)
	result.Status = StepRunning
	state.UpdatedAt = time.Now().UTC()

	m.logger.Debug("step started",
		zap.String("workflow_id", state.WorkflowID),
		zap.String("step_id", stepID))
}

// CompleteStep records a step's output and duration, marks it completed,
// and appends it to CompletedSteps exactly once.
func (m *StateManager) CompleteStep(state *WorkflowState, stepID string, output any, durationMs int64) {
	result := m.ensureResult(state, stepID)
	result.Status = StepCompleted
	result.Output = output
	result.Error = ""
	result.DurationMs = durationMs

	if !state.IsCompleted(stepID) {
		state.CompletedSteps = append(state.CompletedSteps, stepID)
	}
	if state.CurrentStep == stepID {
		state.CurrentStep = ""
	}
	state.UpdatedAt = time.Now().UTC()

	if m.metrics != nil {
		m.metrics.RecordStepResult(string(StepCompleted), time.Duration(durationMs)*time.Millisecond)
	}

	m.logger.Debug("step completed",
		zap.String("workflow_id", state.WorkflowID),
		zap.String("step_id", stepID),
		zap.Int64("duration_ms", durationMs))
}

// SetWorkflowStatus records an executor-driven workflow-level transition.
func (m *StateManager) SetWorkflowStatus(state *WorkflowState, status WorkflowStatus) {
	old := state.Status
	state.Status = status
	state.UpdatedAt = time.Now().UTC()

	m.logger.Info("workflow status change",
		zap.String("workflow_id", state.WorkflowID),
		zap.String("from", string(old)),
		zap.String("to", string(status)))
}

func (m *StateManager) ensureResult(state *WorkflowState, stepID string) *StepResult {
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
