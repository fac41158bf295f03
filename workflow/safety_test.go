package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestEnforceTimeout(t *testing.T) {
	sc := NewSafetyConstraints(60_000, zaptest.NewLogger(t))

	cases := []struct {
		name      string
		timeoutMs int64
		want      time.Duration
	}{
		{"under ceiling", 5_000, 5 * time.Second},
		{"exactly at ceiling", 60_000, time.Minute},
		{"over ceiling is capped", 600_000, time.Minute},
		{"no declared timeout gets ceiling", 0, time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step := &WorkflowStep{
				ID:      "s",
				Type:    StepTypeCommand,
				Command: &CommandSpec{Command: "sleep", TimeoutMs: tc.timeoutMs},
			}
			assert.Equal(t, tc.want, sc.EnforceTimeout(step))
		})
	}
}

func TestEnforceTimeoutNeverExceedsCeiling(t *testing.T) {
	sc := NewSafetyConstraints(1_000, zaptest.NewLogger(t))

	for _, declared := range []int64{0, 1, 999, 1_000, 1_001, 1 << 40} {
		step := &WorkflowStep{
			ID:      "s",
			Type:    StepTypeCommand,
			Command: &CommandSpec{Command: "sleep", TimeoutMs: declared},
		}
		assert.LessOrEqual(t, sc.EnforceTimeout(step), sc.MaxTimeout())
	}
}

func TestEnforceTimeoutNonCommandStep(t *testing.T) {
	sc := NewSafetyConstraints(30_000, zaptest.NewLogger(t))
	step := &WorkflowStep{
		ID:    "s",
		Type:  StepTypeAgent,
		Agent: &AgentSpec{AgentID: "a", Task: "t"},
	}
	assert.Equal(t, sc.MaxTimeout(), sc.EnforceTimeout(step))
}

func TestDefaultCeiling(t *testing.T) {
	assert.Equal(t, DefaultMaxStepTimeout, NewSafetyConstraints(0, nil).MaxTimeout())
	assert.Equal(t, DefaultMaxStepTimeout, NewSafetyConstraints(-5, nil).MaxTimeout())
}

func TestHasRollbackCapability(t *testing.T) {
	sc := NewSafetyConstraints(0, zaptest.NewLogger(t))

	assert.True(t, sc.HasRollbackCapability(&WorkflowStep{
		OnError: ErrorAction{Type: ErrorActionRollback},
	}))
	assert.False(t, sc.HasRollbackCapability(&WorkflowStep{
		OnError: ErrorAction{Type: ErrorActionRetry, MaxAttempts: 3},
	}))
	assert.False(t, sc.HasRollbackCapability(&WorkflowStep{}))
}
