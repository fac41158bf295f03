package workflow

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/stepflow-io/stepflow/types"
)

// comparison operators in scan order: two-character operators first so
// ">=" is never read as ">" followed by garbage
var conditionOps = []string{"==", "!=", ">=", "<=", ">", "<"}

// ConditionEvaluator resolves branch conditions of the form
//
//	<step_id>.output.<dotted.path> <op> <literal>
//
// against outputs recorded in a WorkflowState. Evaluation is a pure
// function of (workflow, state, condition step): identical inputs always
// yield identical output.
type ConditionEvaluator struct {
	logger *zap.Logger
}

// NewConditionEvaluator creates a condition evaluator.
func NewConditionEvaluator(logger *zap.Logger) *ConditionEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConditionEvaluator{
		logger: logger.With(zap.String("component", "condition_evaluator")),
	}
}

// Evaluate evaluates the step's condition expression and returns its
// then-steps when the condition holds, else-steps otherwise.
func (e *ConditionEvaluator) Evaluate(wf *Workflow, state *WorkflowState, conditionStep *WorkflowStep) ([]string, error) {
	if conditionStep == nil || conditionStep.Type != StepTypeCondition || conditionStep.Condition == nil {
		return nil, types.NewError(types.ErrValidation, "step is not a condition step")
	}
	if state == nil {
		return nil, types.NewError(types.ErrValidation, "workflow state is nil")
	}

	cmp, err := parseCondition(conditionStep.Condition.Condition)
	if err != nil {
		return nil, err
	}

	actual, err := resolveOutputValue(state, cmp.stepID, cmp.path)
	if err != nil {
		return nil, err
	}

	holds, err := compareValues(actual, cmp.op, cmp.literal)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("condition evaluated",
		zap.String("step_id", conditionStep.ID),
		zap.String("condition", conditionStep.Condition.Condition),
		zap.Bool("holds", holds))

	if holds {
		return append([]string(nil), conditionStep.Condition.ThenSteps...), nil
	}
	return append([]string(nil), conditionStep.Condition.ElseSteps...), nil
}

// parsedCondition is a split "<step>.output.<path> <op> <literal>" expression.
type parsedCondition struct {
	stepID  string
	path    string
	op      string
	literal literalValue
}

func parseCondition(expr string) (*parsedCondition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, types.NewError(types.ErrValidation, "empty condition expression")
	}

	opIdx, op := -1, ""
	for i := 0; i < len(expr); i++ {
		for _, candidate := range conditionOps {
			if strings.HasPrefix(expr[i:], candidate) {
				opIdx, op = i, candidate
				break
			}
		}
		if opIdx >= 0 {
			break
		}
	}
	if opIdx < 0 {
		return nil, types.Errorf(types.ErrValidation, "condition %q has no comparison operator", expr)
	}

	left := strings.TrimSpace(expr[:opIdx])
	right := strings.TrimSpace(expr[opIdx+len(op):])
	if left == "" || right == "" {
		return nil, types.Errorf(types.ErrValidation, "condition %q is missing an operand", expr)
	}

	// Left side is <step_id>.output.<dotted.path>
	parts := strings.SplitN(left, ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] != "output" || parts[2] == "" {
		return nil, types.Errorf(types.ErrValidation,
			"condition reference %q must have the form <step_id>.output.<path>", left)
	}

	literal, err := parseLiteral(right)
	if err != nil {
		return nil, err
	}

	return &parsedCondition{
		stepID:  parts[0],
		path:    parts[2],
		op:      op,
		literal: literal,
	}, nil
}

// literalKind classifies a condition operand for type-aware comparison.
type literalKind int

const (
	kindNumber literalKind = iota
	kindString
	kindBool
	kindNull
	// kindComposite covers objects and arrays on the output side; these
	// never match a literal and cannot be ordered
	kindComposite
)

type literalValue struct {
	kind    literalKind
	num     float64
	str     string
	boolean bool
}

// parseLiteral interprets the right-hand operand: single-quoted strings,
// true/false, null, otherwise a number.
func parseLiteral(s string) (literalValue, error) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return literalValue{kind: kindString, str: s[1 : len(s)-1]}, nil
	}
	switch s {
	case "true":
		return literalValue{kind: kindBool, boolean: true}, nil
	case "false":
		return literalValue{kind: kindBool, boolean: false}, nil
	case "null":
		return literalValue{kind: kindNull}, nil
	}
	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return literalValue{}, types.Errorf(types.ErrValidation, "cannot parse condition literal %q", s)
	}
	return literalValue{kind: kindNumber, num: num}, nil
}

// resolveOutputValue looks up the referenced step's recorded output and
// navigates the dotted path through nested objects.
func resolveOutputValue(state *WorkflowState, stepID, path string) (literalValue, error) {
	result, ok := state.StepResults[stepID]
	if !ok || result.Output == nil {
		return literalValue{}, types.Errorf(types.ErrMissingReference,
			"step %q has no recorded output", stepID)
	}

	data, err := json.Marshal(result.Output)
	if err != nil {
		return literalValue{}, types.WrapError(types.ErrMissingReference,
			"step output is not JSON-representable", err)
	}

	value := gjson.GetBytes(data, path)
	if !value.Exists() {
		return literalValue{}, types.Errorf(types.ErrMissingReference,
			"path %q does not resolve in output of step %q", path, stepID)
	}

	switch value.Type {
	case gjson.Number:
		return literalValue{kind: kindNumber, num: value.Num}, nil
	case gjson.String:
		return literalValue{kind: kindString, str: value.Str}, nil
	case gjson.True:
		return literalValue{kind: kindBool, boolean: true}, nil
	case gjson.False:
		return literalValue{kind: kindBool, boolean: false}, nil
	case gjson.Null:
		return literalValue{kind: kindNull}, nil
	default:
		return literalValue{kind: kindComposite}, nil
	}
}

// compareValues applies the operator type-aware: ordering is numeric-only,
// equality is structural across all scalar kinds.
func compareValues(actual literalValue, op string, literal literalValue) (bool, error) {
	switch op {
	case ">", "<", ">=", "<=":
		if actual.kind != kindNumber || literal.kind != kindNumber {
			return false, types.Errorf(types.ErrInvalidComparison,
				"operator %q requires numeric operands", op)
		}
		switch op {
		case ">":
			return actual.num > literal.num, nil
		case "<":
			return actual.num < literal.num, nil
		case ">=":
			return actual.num >= literal.num, nil
		default:
			return actual.num <= literal.num, nil
		}

	case "==", "!=":
		eq := structurallyEqual(actual, literal)
		if op == "==" {
			return eq, nil
		}
		return !eq, nil

	default:
		return false, types.Errorf(types.ErrValidation, "unknown operator %q", op)
	}
}

func structurallyEqual(a, b literalValue) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case kindNumber:
		return a.num == b.num
	case kindString:
		return a.str == b.str
	case kindBool:
		return a.boolean == b.boolean
	case kindNull:
		return true
	default:
		// Composite values never equal a parseable literal.
		return false
	}
}
