package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuilderBuildsFullWorkflow(t *testing.T) {
	wf, err := NewWorkflowBuilder("wf-etl", "nightly etl").
		WithDescription("extract, transform, load").
		WithLogger(zaptest.NewLogger(t)).
		WithParameter("date", "2026-08-23").
		WithConfig(WorkflowConfig{TimeoutMs: 3_600_000, MaxParallel: 2}).
		AddStep("extract", "pull source data").
		Command("etl", "extract").CommandTimeout(120_000).
		OnRetry(3, 1_000).
		RiskFactors(20, 95, 15).Done().
		AddStep("transform", "normalize records").
		Agent("transformer", "normalize the extracted records").
		DependsOn("extract").
		RiskFactors(30, 80, 40).Done().
		AddStep("gate", "skip load on empty batch").
		Condition("extract.output.rows > 0", []string{"load"}, nil).
		DependsOn("transform").Done().
		AddStep("load", "write to warehouse").
		Command("etl", "load").
		DependsOn("gate").
		RequireApproval().
		OnRollback().
		RiskFactors(85, 20, 60).Done().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "wf-etl", wf.ID)
	assert.Equal(t, "extract, transform, load", wf.Description)
	assert.Equal(t, "2026-08-23", wf.Parameters["date"])
	assert.Equal(t, 2, wf.Config.MaxParallel)
	require.Len(t, wf.Steps, 4)

	extract, ok := wf.Step("extract")
	require.True(t, ok)
	assert.Equal(t, StepTypeCommand, extract.Type)
	assert.Equal(t, int64(120_000), extract.Command.TimeoutMs)
	assert.Equal(t, ErrorActionRetry, extract.OnError.Type)

	load, ok := wf.Step("load")
	require.True(t, ok)
	assert.True(t, load.ApprovalRequired)
	assert.Equal(t, ErrorActionRollback, load.OnError.Type)
	assert.Equal(t, RiskFactors{Impact: 85, Reversibility: 20, Complexity: 60}, load.RiskFactors)
}

func TestBuilderValidatesOnBuild(t *testing.T) {
	_, err := NewWorkflowBuilder("wf-bad", "broken").
		AddStep("a", "a").Command("true").DependsOn("missing").Done().
		Build()
	assert.Error(t, err)
}

func TestBuilderRejectsCycle(t *testing.T) {
	_, err := NewWorkflowBuilder("wf-cycle", "loop").
		AddStep("a", "a").Command("true").DependsOn("b").Done().
		AddStep("b", "b").Command("true").DependsOn("a").Done().
		Build()
	assert.Error(t, err)
}

func TestBuilderEarlyStepBuildersStayValid(t *testing.T) {
	b := NewWorkflowBuilder("wf-many", "many steps")

	// Hold a builder from the first step, then grow the list well past any
	// initial slice capacity before using it.
	first := b.AddStep("s0", "step zero").Command("true")
	for i := 1; i < 40; i++ {
		b.AddStep(stepID(i), "filler").Command("true").Done()
	}
	first.RequireApproval().Done()

	wf, err := b.Build()
	require.NoError(t, err)

	s0, ok := wf.Step("s0")
	require.True(t, ok)
	assert.True(t, s0.ApprovalRequired)
}

func stepID(i int) string {
	return "s" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}
