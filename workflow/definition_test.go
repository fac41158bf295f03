package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepflow-io/stepflow/types"
)

const sampleWorkflowJSON = `{
  "id": "wf-release",
  "name": "release pipeline",
  "steps": [
    {
      "id": "build",
      "name": "build",
      "type": "command",
      "command": {"command": "make", "args": ["build"], "timeout_ms": 60000},
      "risk_factors": {"impact": 20, "reversibility": 90, "complexity": 10}
    },
    {
      "id": "check",
      "name": "check results",
      "type": "condition",
      "condition": {
        "condition": "build.output.errors == 0",
        "then_steps": ["release"]
      },
      "dependencies": ["build"],
      "risk_factors": {"impact": 0, "reversibility": 100, "complexity": 0}
    },
    {
      "id": "release",
      "name": "publish release",
      "type": "agent",
      "agent": {"agent_id": "publisher", "task": "publish the build"},
      "dependencies": ["check"],
      "approval_required": true,
      "on_error": {"type": "retry", "max_attempts": 3, "delay_ms": 500},
      "risk_factors": {"impact": 80, "reversibility": 30, "complexity": 50}
    }
  ]
}`

func TestParseWorkflowJSON(t *testing.T) {
	wf, err := ParseWorkflowJSON([]byte(sampleWorkflowJSON))
	require.NoError(t, err)

	assert.Equal(t, "wf-release", wf.ID)
	require.Len(t, wf.Steps, 3)

	release, ok := wf.Step("release")
	require.True(t, ok)
	assert.Equal(t, StepTypeAgent, release.Type)
	assert.True(t, release.ApprovalRequired)
	assert.Equal(t, ErrorActionRetry, release.OnError.Type)
	assert.Equal(t, 3, release.OnError.MaxAttempts)
}

func TestParseWorkflowJSONMalformed(t *testing.T) {
	_, err := ParseWorkflowJSON([]byte(`{"id": `))
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
}

func TestJSONYAMLRoundTrip(t *testing.T) {
	original, err := ParseWorkflowJSON([]byte(sampleWorkflowJSON))
	require.NoError(t, err)

	yamlText, err := original.ToYAML()
	require.NoError(t, err)
	fromYAML, err := ParseWorkflowYAML([]byte(yamlText))
	require.NoError(t, err)
	assert.Equal(t, original, fromYAML)

	jsonText, err := original.ToJSON()
	require.NoError(t, err)
	fromJSON, err := ParseWorkflowJSON([]byte(jsonText))
	require.NoError(t, err)
	assert.Equal(t, original, fromJSON)
}

func TestValidateWorkflow(t *testing.T) {
	valid := func() *Workflow {
		wf, err := ParseWorkflowJSON([]byte(sampleWorkflowJSON))
		require.NoError(t, err)
		return wf
	}

	cases := []struct {
		name   string
		mutate func(*Workflow)
	}{
		{"nil workflow", nil},
		{"empty id", func(w *Workflow) { w.ID = "" }},
		{"no steps", func(w *Workflow) { w.Steps = nil }},
		{"empty step id", func(w *Workflow) { w.Steps[0].ID = "" }},
		{"duplicate step id", func(w *Workflow) { w.Steps[1].ID = "build" }},
		{"unknown step type", func(w *Workflow) { w.Steps[0].Type = "webhook" }},
		{"agent without task", func(w *Workflow) { w.Steps[2].Agent.Task = "" }},
		{"command without command", func(w *Workflow) { w.Steps[0].Command.Command = "" }},
		{"condition without configuration", func(w *Workflow) { w.Steps[1].Condition = nil }},
		{"condition with bad expression", func(w *Workflow) {
			w.Steps[1].Condition.Condition = "no operator here"
		}},
		{"condition without branches", func(w *Workflow) {
			w.Steps[1].Condition.ThenSteps = nil
			w.Steps[1].Condition.ElseSteps = nil
		}},
		{"condition routes to unknown step", func(w *Workflow) {
			w.Steps[1].Condition.ThenSteps = []string{"ghost"}
		}},
		{"self dependency", func(w *Workflow) { w.Steps[0].Dependencies = []string{"build"} }},
		{"unknown dependency", func(w *Workflow) { w.Steps[0].Dependencies = []string{"ghost"} }},
		{"dependency cycle", func(w *Workflow) { w.Steps[0].Dependencies = []string{"release"} }},
		{"impact out of range", func(w *Workflow) { w.Steps[0].RiskFactors.Impact = 101 }},
		{"negative reversibility", func(w *Workflow) { w.Steps[0].RiskFactors.Reversibility = -1 }},
		{"cached score out of range", func(w *Workflow) {
			bad := 120
			w.Steps[0].RiskScore = &bad
		}},
		{"retry without attempts", func(w *Workflow) { w.Steps[2].OnError.MaxAttempts = 0 }},
		{"retry with negative delay", func(w *Workflow) { w.Steps[2].OnError.DelayMs = -1 }},
		{"unknown error action", func(w *Workflow) { w.Steps[0].OnError.Type = "explode" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var wf *Workflow
			if tc.mutate != nil {
				wf = valid()
				tc.mutate(wf)
			}
			err := ValidateWorkflow(wf)
			assert.True(t, types.IsErrorCode(err, types.ErrValidation), "got: %v", err)
		})
	}

	assert.NoError(t, ValidateWorkflow(valid()))
}

func TestValidateWorkflowLongerCycle(t *testing.T) {
	wf := deployWorkflow(t)
	// build -> test -> deploy already holds; close the loop.
	wf.Steps[0].Dependencies = []string{"deploy"}

	err := ValidateWorkflow(wf)
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
}

func TestStepLookup(t *testing.T) {
	wf := deployWorkflow(t)

	step, ok := wf.Step("test")
	require.True(t, ok)
	assert.Equal(t, "test", step.ID)

	_, ok = wf.Step("ghost")
	assert.False(t, ok)

	assert.Equal(t, []string{"build", "test", "deploy"}, wf.StepIDs())
}
