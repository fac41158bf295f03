package config

// DefaultConfig returns the full configuration with defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Engine:    DefaultEngineConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultEngineConfig returns the default orchestration policy.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RiskThreshold:            70,
		MaxStepTimeoutMs:         300_000,
		DefaultApprovalTimeoutMs: 3_600_000,
		MetricsNamespace:         "stepflow",
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "stepflow",
		SampleRate:   0.1,
	}
}
