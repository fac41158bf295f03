// Package stepflow provides a top-level entry point that assembles the
// workflow orchestration core with minimal boilerplate.
//
// Usage:
//
//	import "github.com/stepflow-io/stepflow"
//
//	eng, err := stepflow.New()
//	eng, err := stepflow.New(stepflow.WithConfigPath("stepflow.yaml"))
//	eng, err := stepflow.New(stepflow.WithConfig(cfg), stepflow.WithLogger(logger))
//
// The returned Engine carries every core component wired to a shared
// logger and metrics collector. Call Close when done to flush telemetry.
package stepflow

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/stepflow-io/stepflow/config"
	"github.com/stepflow-io/stepflow/internal/metrics"
	"github.com/stepflow-io/stepflow/internal/telemetry"
	"github.com/stepflow-io/stepflow/workflow"
)

// Engine bundles the orchestration core components behind one handle.
// Fields are assembled by New and safe for concurrent use.
type Engine struct {
	States     *workflow.StateManager
	Conditions *workflow.ConditionEvaluator
	Risk       *workflow.RiskScorer
	Safety     *workflow.SafetyConstraints
	Approvals  *workflow.ApprovalGate
	Errors     *workflow.ErrorHandler
	Rollbacks  *workflow.RollbackManager

	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Collector

	providers *telemetry.Providers
	ownLogger bool
}

// Option configures the engine created by New.
type Option func(*options)

type options struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	registry   prometheus.Registerer
}

// WithConfig supplies a pre-built configuration, skipping the loader.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigPath loads configuration from the given YAML file with
// environment overrides.
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger supplies an existing zap logger. The engine will not sync it
// on Close.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetricsRegistry registers engine metrics on a custom registry
// instead of the Prometheus default.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// New assembles the engine: configuration, logger, metrics, telemetry,
// and every workflow component sharing them.
func New(opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.NewLoader().WithConfigPath(o.configPath).Load()
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	ownLogger := false
	if logger == nil {
		built, err := config.NewLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		logger = built
		ownLogger = true
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	collector := metrics.NewCollector(cfg.Engine.MetricsNamespace, o.registry, logger)

	eng := &Engine{
		States:     workflow.NewStateManager(logger).WithMetrics(collector),
		Conditions: workflow.NewConditionEvaluator(logger),
		Risk: workflow.NewRiskScorer(logger).
			WithThreshold(cfg.Engine.RiskThreshold).
			WithMetrics(collector),
		Safety:    workflow.NewSafetyConstraints(cfg.Engine.MaxStepTimeoutMs, logger),
		Approvals: workflow.NewApprovalGate(logger).
			WithDefaultTimeout(cfg.Engine.DefaultApprovalTimeoutMs).
			WithMetrics(collector),
		Errors:    workflow.NewErrorHandler(logger).WithMetrics(collector),
		Rollbacks: workflow.NewRollbackManager(logger).WithMetrics(collector),

		Config:    cfg,
		Logger:    logger,
		Metrics:   collector,
		providers: providers,
		ownLogger: ownLogger,
	}

	logger.Info("engine assembled",
		zap.Int("risk_threshold", cfg.Engine.RiskThreshold),
		zap.Int64("max_step_timeout_ms", cfg.Engine.MaxStepTimeoutMs))

	return eng, nil
}

// Close flushes telemetry and, when the engine built its own logger,
// syncs it.
func (e *Engine) Close(ctx context.Context) error {
	err := e.providers.Shutdown(ctx)
	if e.ownLogger {
		// Sync errors on stdout sinks are expected and ignored.
		_ = e.Logger.Sync()
	}
	return err
}
