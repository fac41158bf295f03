package workflow

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/stepflow-io/stepflow/types"
)

// ParseWorkflowJSON decodes and validates a workflow definition from JSON.
func ParseWorkflowJSON(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, types.WrapError(types.ErrValidation, "decode workflow JSON", err)
	}
	if err := ValidateWorkflow(&wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// ParseWorkflowYAML decodes and validates a workflow definition from YAML.
func ParseWorkflowYAML(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, types.WrapError(types.ErrValidation, "decode workflow YAML", err)
	}
	if err := ValidateWorkflow(&wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// ToJSON serializes the workflow as indented JSON.
func (w *Workflow) ToJSON() (string, error) {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal workflow to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML serializes the workflow as YAML.
func (w *Workflow) ToYAML() (string, error) {
	data, err := yaml.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("marshal workflow to YAML: %w", err)
	}
	return string(data), nil
}

// ValidateWorkflow checks a workflow definition: unique step ids,
// resolvable dependencies and branch targets, an acyclic dependency graph,
// per-variant configuration, risk factors within range, and sane retry
// parameters.
func ValidateWorkflow(w *Workflow) error {
	if w == nil {
		return types.NewError(types.ErrValidation, "workflow is nil")
	}
	if w.ID == "" {
		return types.NewError(types.ErrValidation, "workflow id is required")
	}
	if len(w.Steps) == 0 {
		return types.NewError(types.ErrValidation, "workflow has no steps")
	}

	ids := make(map[string]bool, len(w.Steps))
	for i := range w.Steps {
		step := &w.Steps[i]
		if step.ID == "" {
			return types.Errorf(types.ErrValidation, "step %d has no id", i)
		}
		if ids[step.ID] {
			return types.Errorf(types.ErrValidation, "duplicate step id %q", step.ID)
		}
		ids[step.ID] = true
	}

	for i := range w.Steps {
		if err := validateStep(&w.Steps[i], ids); err != nil {
			return err
		}
	}

	return detectDependencyCycles(w)
}

func validateStep(step *WorkflowStep, ids map[string]bool) error {
	switch step.Type {
	case StepTypeAgent:
		if step.Agent == nil || step.Agent.AgentID == "" || step.Agent.Task == "" {
			return types.Errorf(types.ErrValidation,
				"agent step %q requires agent_id and task", step.ID)
		}

	case StepTypeCommand:
		if step.Command == nil || step.Command.Command == "" {
			return types.Errorf(types.ErrValidation,
				"command step %q requires a command", step.ID)
		}

	case StepTypeCondition:
		if step.Condition == nil {
			return types.Errorf(types.ErrValidation,
				"condition step %q has no condition configured", step.ID)
		}
		if _, err := parseCondition(step.Condition.Condition); err != nil {
			return types.WrapError(types.ErrValidation,
				fmt.Sprintf("condition step %q has a malformed expression", step.ID), err)
		}
		if len(step.Condition.ThenSteps) == 0 && len(step.Condition.ElseSteps) == 0 {
			return types.Errorf(types.ErrValidation,
				"condition step %q has no routing configured", step.ID)
		}
		for _, target := range step.Condition.ThenSteps {
			if !ids[target] {
				return types.Errorf(types.ErrValidation,
					"condition step %q routes to unknown step %q", step.ID, target)
			}
		}
		for _, target := range step.Condition.ElseSteps {
			if !ids[target] {
				return types.Errorf(types.ErrValidation,
					"condition step %q routes to unknown step %q", step.ID, target)
			}
		}

	default:
		return types.Errorf(types.ErrValidation,
			"step %q has unknown type %q", step.ID, step.Type)
	}

	for _, dep := range step.Dependencies {
		if dep == step.ID {
			return types.Errorf(types.ErrValidation, "step %q depends on itself", step.ID)
		}
		if !ids[dep] {
			return types.Errorf(types.ErrValidation,
				"step %q depends on unknown step %q", step.ID, dep)
		}
	}

	if err := validateRange("impact", step.RiskFactors.Impact, step.ID); err != nil {
		return err
	}
	if err := validateRange("reversibility", step.RiskFactors.Reversibility, step.ID); err != nil {
		return err
	}
	if err := validateRange("complexity", step.RiskFactors.Complexity, step.ID); err != nil {
		return err
	}
	if step.RiskScore != nil {
		if err := validateRange("risk_score", *step.RiskScore, step.ID); err != nil {
			return err
		}
	}

	switch step.OnError.Type {
	case ErrorActionFail, ErrorActionSkip, ErrorActionRollback, "":
	case ErrorActionRetry:
		if step.OnError.MaxAttempts <= 0 {
			return types.Errorf(types.ErrValidation,
				"retry policy on step %q requires positive max_attempts", step.ID)
		}
		if step.OnError.DelayMs < 0 {
			return types.Errorf(types.ErrValidation,
				"retry policy on step %q requires non-negative delay_ms", step.ID)
		}
	default:
		return types.Errorf(types.ErrValidation,
			"step %q has unknown error action %q", step.ID, step.OnError.Type)
	}

	return nil
}

func validateRange(name string, value int, stepID string) error {
	if value < 0 || value > 100 {
		return types.Errorf(types.ErrValidation,
			"%s of step %q must be in [0,100], got %d", name, stepID, value)
	}
	return nil
}

// detectDependencyCycles runs a DFS over the dependency edges of every
// step.
func detectDependencyCycles(w *Workflow) error {
	visited := make(map[string]bool, len(w.Steps))
	onStack := make(map[string]bool, len(w.Steps))

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		if step, ok := w.Step(id); ok {
			for _, dep := range step.Dependencies {
				if !visited[dep] {
					if visit(dep) {
						return true
					}
				} else if onStack[dep] {
					// Back edge: cycle.
					return true
				}
			}
		}

		onStack[id] = false
		return false
	}

	for i := range w.Steps {
		id := w.Steps[i].ID
		if !visited[id] && visit(id) {
			return types.Errorf(types.ErrValidation,
				"dependency cycle detected involving step %q", id)
		}
	}
	return nil
}
