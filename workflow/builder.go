package workflow

import (
	"fmt"

	"go.uber.org/zap"
)

// WorkflowBuilder provides a fluent API for constructing workflows.
type WorkflowBuilder struct {
	wf     *Workflow
	steps  []*WorkflowStep
	logger *zap.Logger
}

// NewWorkflowBuilder creates a builder for a workflow with the given id
// and name.
func NewWorkflowBuilder(id, name string) *WorkflowBuilder {
	return &WorkflowBuilder{
		wf: &Workflow{
			ID:         id,
			Name:       name,
			Parameters: make(map[string]any),
		},
		logger: zap.NewNop(),
	}
}

// WithDescription sets the workflow description.
func (b *WorkflowBuilder) WithDescription(desc string) *WorkflowBuilder {
	b.wf.Description = desc
	return b
}

// WithLogger sets a custom logger.
func (b *WorkflowBuilder) WithLogger(logger *zap.Logger) *WorkflowBuilder {
	b.logger = logger.With(zap.String("component", "workflow_builder"))
	return b
}

// WithParameter sets a workflow parameter.
func (b *WorkflowBuilder) WithParameter(key string, value any) *WorkflowBuilder {
	b.wf.Parameters[key] = value
	return b
}

// WithConfig sets workflow-level execution limits.
func (b *WorkflowBuilder) WithConfig(config WorkflowConfig) *WorkflowBuilder {
	b.wf.Config = config
	return b
}

// AddStep appends a step and returns a StepBuilder for configuration.
// Steps are held by pointer until Build so earlier StepBuilders stay valid.
func (b *WorkflowBuilder) AddStep(id, name string) *StepBuilder {
	step := &WorkflowStep{ID: id, Name: name}
	b.steps = append(b.steps, step)
	return &StepBuilder{
		step:   step,
		parent: b,
	}
}

// Build validates the assembled workflow and returns it.
func (b *WorkflowBuilder) Build() (*Workflow, error) {
	b.wf.Steps = make([]WorkflowStep, len(b.steps))
	for i, step := range b.steps {
		b.wf.Steps[i] = *step
	}

	if err := ValidateWorkflow(b.wf); err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	b.logger.Info("workflow built",
		zap.String("id", b.wf.ID),
		zap.Int("steps", len(b.wf.Steps)))

	return b.wf, nil
}

// StepBuilder provides a fluent API for configuring individual steps.
type StepBuilder struct {
	step   *WorkflowStep
	parent *WorkflowBuilder
}

// Agent makes this an agent step.
func (sb *StepBuilder) Agent(agentID, task string) *StepBuilder {
	sb.step.Type = StepTypeAgent
	sb.step.Agent = &AgentSpec{AgentID: agentID, Task: task}
	return sb
}

// Command makes this a command step.
func (sb *StepBuilder) Command(command string, args ...string) *StepBuilder {
	sb.step.Type = StepTypeCommand
	sb.step.Command = &CommandSpec{Command: command, Args: args}
	return sb
}

// CommandTimeout declares the command's timeout in milliseconds.
func (sb *StepBuilder) CommandTimeout(timeoutMs int64) *StepBuilder {
	if sb.step.Command != nil {
		sb.step.Command.TimeoutMs = timeoutMs
	}
	return sb
}

// Condition makes this a condition step branching on the expression.
func (sb *StepBuilder) Condition(expr string, thenSteps, elseSteps []string) *StepBuilder {
	sb.step.Type = StepTypeCondition
	sb.step.Condition = &ConditionSpec{
		Condition: expr,
		ThenSteps: thenSteps,
		ElseSteps: elseSteps,
	}
	return sb
}

// DependsOn adds dependency step ids.
func (sb *StepBuilder) DependsOn(stepIDs ...string) *StepBuilder {
	sb.step.Dependencies = append(sb.step.Dependencies, stepIDs...)
	return sb
}

// RequireApproval gates the step behind a human decision.
func (sb *StepBuilder) RequireApproval() *StepBuilder {
	sb.step.ApprovalRequired = true
	return sb
}

// OnFail sets the fail error policy.
func (sb *StepBuilder) OnFail() *StepBuilder {
	sb.step.OnError = ErrorAction{Type: ErrorActionFail}
	return sb
}

// OnSkip sets the skip error policy.
func (sb *StepBuilder) OnSkip() *StepBuilder {
	sb.step.OnError = ErrorAction{Type: ErrorActionSkip}
	return sb
}

// OnRetry sets the retry error policy.
func (sb *StepBuilder) OnRetry(maxAttempts int, delayMs int64) *StepBuilder {
	sb.step.OnError = ErrorAction{
		Type:        ErrorActionRetry,
		MaxAttempts: maxAttempts,
		DelayMs:     delayMs,
	}
	return sb
}

// OnRollback sets the rollback error policy.
func (sb *StepBuilder) OnRollback() *StepBuilder {
	sb.step.OnError = ErrorAction{Type: ErrorActionRollback}
	return sb
}

// RiskFactors sets the step's risk factor triple.
func (sb *StepBuilder) RiskFactors(impact, reversibility, complexity int) *StepBuilder {
	sb.step.RiskFactors = RiskFactors{
		Impact:        impact,
		Reversibility: reversibility,
		Complexity:    complexity,
	}
	return sb
}

// Done completes step configuration and returns to the WorkflowBuilder.
func (sb *StepBuilder) Done() *WorkflowBuilder {
	return sb.parent
}
