package workflow

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stepflow-io/stepflow/internal/metrics"
)

// DefaultRiskThreshold is the score above which a step requires approval
// when no threshold is configured.
const DefaultRiskThreshold = 70

// RiskWeights controls the relative contribution of each risk factor.
// Weights must be non-negative; scores are normalized by the weight sum so
// any non-degenerate weighting keeps scores in [0,100].
type RiskWeights struct {
	Impact        float64 `json:"impact" yaml:"impact"`
	Reversibility float64 `json:"reversibility" yaml:"reversibility"`
	Complexity    float64 `json:"complexity" yaml:"complexity"`
}

// DefaultRiskWeights weights impact heaviest, then irreversibility.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{Impact: 0.40, Reversibility: 0.35, Complexity: 0.25}
}

// RiskScorer quantifies per-step risk and decides which steps need a human
// decision before they may run.
type RiskScorer struct {
	threshold int
	weights   RiskWeights
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewRiskScorer creates a scorer with the default threshold and weights.
func NewRiskScorer(logger *zap.Logger) *RiskScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskScorer{
		threshold: DefaultRiskThreshold,
		weights:   DefaultRiskWeights(),
		logger:    logger.With(zap.String("component", "risk_scorer")),
	}
}

// WithThreshold sets the approval cutoff.
func (s *RiskScorer) WithThreshold(threshold int) *RiskScorer {
	s.threshold = clampScore(threshold)
	return s
}

// WithWeights sets custom factor weights. Negative weights are rejected by
// zeroing them, preserving monotonicity.
func (s *RiskScorer) WithWeights(weights RiskWeights) *RiskScorer {
	s.weights = RiskWeights{
		Impact:        math.Max(0, weights.Impact),
		Reversibility: math.Max(0, weights.Reversibility),
		Complexity:    math.Max(0, weights.Complexity),
	}
	return s
}

// WithMetrics attaches a metrics collector.
func (s *RiskScorer) WithMetrics(c *metrics.Collector) *RiskScorer {
	s.metrics = c
	return s
}

// Threshold returns the configured approval cutoff.
func (s *RiskScorer) Threshold() int {
	return s.threshold
}

// CalculateRiskScore returns the step's risk score in [0,100]. A cached
// score on the step is honored; otherwise the score is a weighted
// combination of impact, irreversibility (100 - reversibility), and
// complexity. Identical factor triples always produce identical scores.
func (s *RiskScorer) CalculateRiskScore(step *WorkflowStep) int {
	var score int
	if step.RiskScore != nil {
		score = clampScore(*step.RiskScore)
	} else {
		score = s.scoreFactors(step.RiskFactors)
	}

	if s.metrics != nil {
		s.metrics.ObserveRiskScore(score)
	}
	return score
}

// RequiresApproval reports whether a score exceeds the threshold.
// The comparison is strictly greater-than.
func (s *RiskScorer) RequiresApproval(score int) bool {
	return score > s.threshold
}

// scoreFactors derives a score from factors alone.
func (s *RiskScorer) scoreFactors(factors RiskFactors) int {
	impact := float64(clampScore(factors.Impact))
	irreversibility := float64(100 - clampScore(factors.Reversibility))
	complexity := float64(clampScore(factors.Complexity))

	sum := s.weights.Impact + s.weights.Reversibility + s.weights.Complexity
	if sum <= 0 {
		return 0
	}

	weighted := s.weights.Impact*impact +
		s.weights.Reversibility*irreversibility +
		s.weights.Complexity*complexity

	return clampScore(int(math.Round(weighted / sum)))
}

// StepRiskAssessment is the per-step entry of a risk report.
type StepRiskAssessment struct {
	StepID           string      `json:"step_id"`
	StepName         string      `json:"step_name,omitempty"`
	RiskScore        int         `json:"risk_score"`
	Factors          RiskFactors `json:"factors"`
	RequiresApproval bool        `json:"requires_approval"`
	// Status reflects the step's execution status at generation time;
	// assessment itself is independent of it
	Status StepStatus `json:"status"`
}

// RiskAssessmentReport summarizes the risk exposure of a whole workflow.
type RiskAssessmentReport struct {
	ID              string               `json:"id"`
	WorkflowID      string               `json:"workflow_id"`
	Name            string               `json:"name"`
	StepAssessments []StepRiskAssessment `json:"step_assessments"`
	// OverallRiskScore is the maximum step score: worst-case exposure
	OverallRiskScore int       `json:"overall_risk_score"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// GenerateReport assesses every step regardless of execution status.
// Scores are recomputed from factors so the report reflects current factor
// values. The report never mutates state and generation never fails.
func (s *RiskScorer) GenerateReport(workflowID, name string, steps []WorkflowStep, state *WorkflowState) *RiskAssessmentReport {
	report := &RiskAssessmentReport{
		ID:              uuid.NewString(),
		WorkflowID:      workflowID,
		Name:            name,
		StepAssessments: make([]StepRiskAssessment, 0, len(steps)),
		GeneratedAt:     time.Now().UTC(),
	}

	for i := range steps {
		step := &steps[i]
		score := s.scoreFactors(step.RiskFactors)

		status := StepPending
		if state != nil {
			if result, ok := state.StepResults[step.ID]; ok {
				status = result.Status
			}
		}

		report.StepAssessments = append(report.StepAssessments, StepRiskAssessment{
			StepID:           step.ID,
			StepName:         step.Name,
			RiskScore:        score,
			Factors:          step.RiskFactors,
			RequiresApproval: s.RequiresApproval(score),
			Status:           status,
		})

		if score > report.OverallRiskScore {
			report.OverallRiskScore = score
		}
	}

	s.logger.Debug("risk report generated",
		zap.String("workflow_id", workflowID),
		zap.Int("steps", len(steps)),
		zap.Int("overall_risk_score", report.OverallRiskScore))

	return report
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
