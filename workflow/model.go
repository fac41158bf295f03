package workflow

import "encoding/json"

// StepType defines the variant of a workflow step
type StepType string

const (
	// StepTypeAgent delegates a task to an AI agent
	StepTypeAgent StepType = "agent"
	// StepTypeCommand runs a shell command
	StepTypeCommand StepType = "command"
	// StepTypeCondition performs conditional branching
	StepTypeCondition StepType = "condition"
)

// ErrorActionType defines how a step failure should be handled
type ErrorActionType string

const (
	// ErrorActionFail marks the step failed and stops forward progress
	ErrorActionFail ErrorActionType = "fail"
	// ErrorActionSkip marks the step skipped and continues
	ErrorActionSkip ErrorActionType = "skip"
	// ErrorActionRetry marks the step failed; the executor re-invokes it
	// using RetryState backoff
	ErrorActionRetry ErrorActionType = "retry"
	// ErrorActionRollback marks the step failed and signals the executor
	// to invoke the RollbackManager
	ErrorActionRollback ErrorActionType = "rollback"
)

// ErrorAction configures the on-failure policy of a step.
// An empty Type is treated as ErrorActionFail.
type ErrorAction struct {
	Type ErrorActionType `json:"type" yaml:"type"`
	// MaxAttempts is the maximum number of retry attempts (retry only)
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// DelayMs is the base retry delay in milliseconds (retry only)
	DelayMs int64 `json:"delay_ms,omitempty" yaml:"delay_ms,omitempty"`
}

// RiskFactors are the three inputs of a step's risk score, each in [0,100].
type RiskFactors struct {
	// Impact measures blast radius when the step misbehaves
	Impact int `json:"impact" yaml:"impact"`
	// Reversibility measures how easily the step's effects can be undone;
	// higher is safer
	Reversibility int `json:"reversibility" yaml:"reversibility"`
	// Complexity measures how likely the step is to misbehave
	Complexity int `json:"complexity" yaml:"complexity"`
}

// AgentSpec configures an agent step.
type AgentSpec struct {
	AgentID string `json:"agent_id" yaml:"agent_id"`
	Task    string `json:"task" yaml:"task"`
}

// CommandSpec configures a command step.
type CommandSpec struct {
	Command   string   `json:"command" yaml:"command"`
	Args      []string `json:"args,omitempty" yaml:"args,omitempty"`
	TimeoutMs int64    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// ConditionSpec configures a condition step. Condition is an expression of
// the form "<step_id>.output.<dotted.path> <op> <literal>" evaluated by
// ConditionEvaluator against recorded step outputs.
type ConditionSpec struct {
	Condition string   `json:"condition" yaml:"condition"`
	ThenSteps []string `json:"then_steps,omitempty" yaml:"then_steps,omitempty"`
	ElseSteps []string `json:"else_steps,omitempty" yaml:"else_steps,omitempty"`
}

// WorkflowStep is one unit of work in a workflow. Exactly one of Agent,
// Command, and Condition is set, matching Type.
type WorkflowStep struct {
	// ID is unique within the workflow
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	Type StepType `json:"type" yaml:"type"`

	Agent     *AgentSpec     `json:"agent,omitempty" yaml:"agent,omitempty"`
	Command   *CommandSpec   `json:"command,omitempty" yaml:"command,omitempty"`
	Condition *ConditionSpec `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Config is opaque to the engine and interpreted only by the actual
	// agent/command executor
	Config json.RawMessage `json:"config,omitempty" yaml:"config,omitempty"`

	// Dependencies lists step ids that must be in completed_steps before
	// this step is eligible to run
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// ApprovalRequired gates the step behind an ApprovalGate decision
	ApprovalRequired bool `json:"approval_required,omitempty" yaml:"approval_required,omitempty"`

	OnError ErrorAction `json:"on_error" yaml:"on_error"`

	// RiskScore caches a previously computed score; nil means uncached
	RiskScore   *int        `json:"risk_score,omitempty" yaml:"risk_score,omitempty"`
	RiskFactors RiskFactors `json:"risk_factors" yaml:"risk_factors"`
}

// WorkflowConfig carries workflow-level execution limits. MaxParallel is
// declared here but enforced by the external executor.
type WorkflowConfig struct {
	TimeoutMs   int64 `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	MaxParallel int   `json:"max_parallel,omitempty" yaml:"max_parallel,omitempty"`
}

// Workflow is a named, ordered sequence of steps forming a dependency DAG.
type Workflow struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Steps       []WorkflowStep `json:"steps" yaml:"steps"`
	Config      WorkflowConfig `json:"config" yaml:"config"`
}

// Step returns the step with the given id.
func (w *Workflow) Step(id string) (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i], true
		}
	}
	return nil, false
}

// StepIDs returns all step ids in definition order.
func (w *Workflow) StepIDs() []string {
	ids := make([]string, len(w.Steps))
	for i := range w.Steps {
		ids[i] = w.Steps[i].ID
	}
	return ids
}
