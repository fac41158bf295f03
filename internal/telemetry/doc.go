// Copyright (c) Stepflow Authors.
// Licensed under the MIT License.

// Package telemetry wraps OpenTelemetry SDK initialization for the engine.
// When telemetry is disabled the global providers stay noop and no external
// connection is made.
package telemetry
