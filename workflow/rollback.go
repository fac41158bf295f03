package workflow

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stepflow-io/stepflow/internal/metrics"
	"github.com/stepflow-io/stepflow/types"
)

// RollbackPlan is the execution ledger of one workflow run. Recorded order
// is execution order; intended undo order is the reverse. The actual undo
// actions are the executor's concern.
type RollbackPlan struct {
	WorkflowID string

	mu       sync.Mutex
	executed []string
}

// RecordExecution appends a step id to the ledger.
func (p *RollbackPlan) RecordExecution(stepID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executed = append(p.executed, stepID)
}

// ExecutedSteps returns a copy of the ledger in execution order.
func (p *RollbackPlan) ExecutedSteps() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	steps := make([]string, len(p.executed))
	copy(steps, p.executed)
	return steps
}

// UndoOrder returns the ledger reversed, for executors implementing
// step-level undo.
func (p *RollbackPlan) UndoOrder() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	steps := make([]string, len(p.executed))
	for i, id := range p.executed {
		steps[len(p.executed)-1-i] = id
	}
	return steps
}

// RollbackManager tracks executed steps and restores workflow state to a
// clean, resumable baseline after a rollback-policy failure.
type RollbackManager struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewRollbackManager creates a rollback manager.
func NewRollbackManager(logger *zap.Logger) *RollbackManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollbackManager{
		logger: logger.With(zap.String("component", "rollback_manager")),
	}
}

// WithMetrics attaches a metrics collector.
func (m *RollbackManager) WithMetrics(c *metrics.Collector) *RollbackManager {
	m.metrics = c
	return m
}

// CreateRollbackPlan initializes an empty execution ledger for the
// workflow.
func (m *RollbackManager) CreateRollbackPlan(wf *Workflow) *RollbackPlan {
	return &RollbackPlan{
		WorkflowID: wf.ID,
		executed:   make([]string, 0, len(wf.Steps)),
	}
}

// RestoreState resets the workflow's progress to a clean baseline:
// completed steps, step results, and captured step errors are cleared as
// one atomic unit, the current step is unset, and the workflow moves to
// rolled_back. The run can then be resumed from the beginning.
//
// A nil state cannot be restored; the caller must treat that as fatal to
// the current workflow run.
func (m *RollbackManager) RestoreState(state *WorkflowState) error {
	if state == nil {
		return types.NewError(types.ErrValidation, "cannot restore a nil workflow state")
	}

	cleared := len(state.CompletedSteps)
	state.CompletedSteps = make([]string, 0)
	state.StepResults = make(map[string]*StepResult)
	state.StepErrors = make(map[string]*StepError)
	state.CurrentStep = ""
	state.Status = StatusRolledBack
	state.UpdatedAt = time.Now().UTC()

	if m.metrics != nil {
		m.metrics.RecordRollback()
	}

	m.logger.Info("workflow state restored",
		zap.String("workflow_id", state.WorkflowID),
		zap.Int("cleared_steps", cleared))

	return nil
}
