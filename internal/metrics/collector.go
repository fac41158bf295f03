package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records engine metrics: step lifecycle, approval decisions,
// retries, rollbacks, and risk scoring.
type Collector struct {
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec

	approvalRequestsTotal  prometheus.Counter
	approvalDecisionsTotal *prometheus.CounterVec
	approvalsPending       prometheus.Gauge

	retriesTotal   prometheus.Counter
	rollbacksTotal prometheus.Counter

	riskScore prometheus.Histogram

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered against reg.
// A nil reg falls back to the default Prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.stepsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of step result transitions",
		},
		[]string{"status"},
	)

	c.stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	c.approvalRequestsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_requests_total",
			Help:      "Total number of approval requests opened",
		},
	)

	c.approvalDecisionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_decisions_total",
			Help:      "Total number of approval decisions",
		},
		[]string{"decision"},
	)

	c.approvalsPending = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "approvals_pending",
			Help:      "Number of approval requests currently pending",
		},
	)

	c.retriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of recorded retry attempts",
		},
	)

	c.rollbacksTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Total number of workflow state restores",
		},
	)

	c.riskScore = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of computed step risk scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordStepResult records a step result transition with its duration.
func (c *Collector) RecordStepResult(status string, duration time.Duration) {
	c.stepsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		c.stepDuration.WithLabelValues(status).Observe(duration.Seconds())
	}
}

// RecordApprovalRequested records a newly opened approval request.
func (c *Collector) RecordApprovalRequested() {
	c.approvalRequestsTotal.Inc()
	c.approvalsPending.Inc()
}

// RecordApprovalDecision records a terminal approval decision.
func (c *Collector) RecordApprovalDecision(decision string) {
	c.approvalDecisionsTotal.WithLabelValues(decision).Inc()
	c.approvalsPending.Dec()
}

// RecordRetry records one retry attempt.
func (c *Collector) RecordRetry() {
	c.retriesTotal.Inc()
}

// RecordRollback records one whole-state restore.
func (c *Collector) RecordRollback() {
	c.rollbacksTotal.Inc()
}

// ObserveRiskScore records a computed risk score.
func (c *Collector) ObserveRiskScore(score int) {
	c.riskScore.Observe(float64(score))
}
