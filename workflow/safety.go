package workflow

import (
	"time"

	"go.uber.org/zap"
)

// DefaultMaxStepTimeout is the timeout ceiling applied when none is
// configured.
const DefaultMaxStepTimeout = 5 * time.Minute

// SafetyConstraints bounds step execution: it caps declared timeouts and
// tells the executor whether an approved high-risk step has a concrete
// undo path.
type SafetyConstraints struct {
	maxTimeout time.Duration
	logger     *zap.Logger
}

// NewSafetyConstraints creates constraints with the given timeout ceiling
// in milliseconds. Non-positive ceilings fall back to the default.
func NewSafetyConstraints(maxTimeoutMs int64, logger *zap.Logger) *SafetyConstraints {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTimeout := time.Duration(maxTimeoutMs) * time.Millisecond
	if maxTimeout <= 0 {
		maxTimeout = DefaultMaxStepTimeout
	}
	return &SafetyConstraints{
		maxTimeout: maxTimeout,
		logger:     logger.With(zap.String("component", "safety_constraints")),
	}
}

// MaxTimeout returns the configured ceiling.
func (c *SafetyConstraints) MaxTimeout() time.Duration {
	return c.maxTimeout
}

// EnforceTimeout returns the effective timeout for a step: the step's
// declared timeout capped at the configured ceiling. Callers must never
// honor a timeout larger than the returned value, regardless of what the
// step declares. Steps without a declared timeout get the ceiling.
func (c *SafetyConstraints) EnforceTimeout(step *WorkflowStep) time.Duration {
	declared := c.maxTimeout
	if step.Command != nil && step.Command.TimeoutMs > 0 {
		declared = time.Duration(step.Command.TimeoutMs) * time.Millisecond
	}
	if declared > c.maxTimeout {
		c.logger.Warn("declared step timeout exceeds ceiling, capping",
			zap.String("step_id", step.ID),
			zap.Duration("declared", declared),
			zap.Duration("ceiling", c.maxTimeout))
		return c.maxTimeout
	}
	return declared
}

// HasRollbackCapability reports whether the step declares a concrete undo
// path, i.e. its on_error policy is rollback. Executors use this to decide
// whether an approved high-risk step is actually safe to run.
func (c *SafetyConstraints) HasRollbackCapability(step *WorkflowStep) bool {
	return step.OnError.Type == ErrorActionRollback
}
