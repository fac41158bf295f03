// Copyright (c) Stepflow Authors.
// Licensed under the MIT License.

// Package config defines the engine configuration sections, their
// defaults, YAML loading with environment overrides, and zap logger
// construction. Precedence: defaults, then YAML file, then environment.
package config
