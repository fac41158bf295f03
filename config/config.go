package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the complete stepflow configuration.
type Config struct {
	// Engine holds orchestration policy settings
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`
	// Log holds logging settings
	Log LogConfig `yaml:"log" env:"LOG"`
	// Telemetry holds OpenTelemetry settings
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// EngineConfig carries the policy knobs of the orchestration core.
type EngineConfig struct {
	// RiskThreshold is the score above which steps require approval
	RiskThreshold int `yaml:"risk_threshold" env:"RISK_THRESHOLD"`
	// MaxStepTimeoutMs caps every step's declared timeout
	MaxStepTimeoutMs int64 `yaml:"max_step_timeout_ms" env:"MAX_STEP_TIMEOUT_MS"`
	// DefaultApprovalTimeoutMs is used when a request declares none
	DefaultApprovalTimeoutMs int64 `yaml:"default_approval_timeout_ms" env:"DEFAULT_APPROVAL_TIMEOUT_MS"`
	// MetricsNamespace prefixes Prometheus metric names
	MetricsNamespace string `yaml:"metrics_namespace" env:"METRICS_NAMESPACE"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with file:line
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// EnableStacktrace attaches stack traces at error level
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures the OTel SDK bootstrap.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Engine.RiskThreshold < 0 || c.Engine.RiskThreshold > 100 {
		return fmt.Errorf("engine.risk_threshold must be in [0,100], got %d", c.Engine.RiskThreshold)
	}
	if c.Engine.MaxStepTimeoutMs <= 0 {
		return fmt.Errorf("engine.max_step_timeout_ms must be positive, got %d", c.Engine.MaxStepTimeoutMs)
	}
	if c.Engine.DefaultApprovalTimeoutMs <= 0 {
		return fmt.Errorf("engine.default_approval_timeout_ms must be positive, got %d", c.Engine.DefaultApprovalTimeoutMs)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be in [0,1], got %v", c.Telemetry.SampleRate)
	}
	return nil
}

// NewLogger builds a zap logger from the log configuration.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          cfg.Format,
		EncoderConfig:     zap.NewProductionEncoderConfig(),
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if cfg.Format == "console" {
		zapCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
