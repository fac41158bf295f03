package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stepflow-io/stepflow/types"
)

func TestRestoreStateClearsProgress(t *testing.T) {
	wf, err := NewWorkflowBuilder("wf-migrate", "database migration").
		AddStep("backup", "take backup").Command("pg_dump").Done().
		AddStep("migrate", "apply schema").Command("migrate", "up").DependsOn("backup").Done().
		AddStep("verify", "check schema").Command("migrate", "verify").DependsOn("migrate").Done().
		AddStep("announce", "notify team").Command("notify").DependsOn("verify").Done().
		Build()
	require.NoError(t, err)

	sm := NewStateManager(zaptest.NewLogger(t))
	state := sm.CreateState(wf)
	sm.SetWorkflowStatus(state, StatusRunning)

	sm.CompleteStep(state, "backup", map[string]any{"file": "dump.sql"}, 400)
	sm.CompleteStep(state, "migrate", map[string]any{"applied": 7}, 900)
	sm.StartStep(state, "verify")
	state.StepErrors["verify"] = &StepError{Type: "SchemaError", Message: "drift detected"}

	rm := NewRollbackManager(zaptest.NewLogger(t))
	require.NoError(t, rm.RestoreState(state))

	assert.Empty(t, state.CompletedSteps)
	assert.NotNil(t, state.CompletedSteps)
	assert.Empty(t, state.StepResults)
	assert.Empty(t, state.StepErrors)
	assert.Empty(t, state.CurrentStep)
	assert.Equal(t, StatusRolledBack, state.Status)

	// The run can start over from scratch.
	sm.SetWorkflowStatus(state, StatusRunning)
	sm.StartStep(state, "backup")
	result, ok := state.Result("backup")
	require.True(t, ok)
	assert.Equal(t, StepRunning, result.Status)
}

func TestRestoreStateNil(t *testing.T) {
	rm := NewRollbackManager(zaptest.NewLogger(t))
	err := rm.RestoreState(nil)
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
}

func TestRollbackPlanLedger(t *testing.T) {
	wf := deployWorkflow(t)
	rm := NewRollbackManager(zaptest.NewLogger(t))

	plan := rm.CreateRollbackPlan(wf)
	assert.Equal(t, "wf-deploy", plan.WorkflowID)
	assert.Empty(t, plan.ExecutedSteps())

	plan.RecordExecution("build")
	plan.RecordExecution("test")
	plan.RecordExecution("deploy")

	assert.Equal(t, []string{"build", "test", "deploy"}, plan.ExecutedSteps())
	assert.Equal(t, []string{"deploy", "test", "build"}, plan.UndoOrder())
}

func TestRollbackPlanReturnsCopies(t *testing.T) {
	plan := &RollbackPlan{WorkflowID: "wf"}
	plan.RecordExecution("a")
	plan.RecordExecution("b")

	executed := plan.ExecutedSteps()
	executed[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, plan.ExecutedSteps())

	undo := plan.UndoOrder()
	undo[0] = "mutated"
	assert.Equal(t, []string{"b", "a"}, plan.UndoOrder())
}
