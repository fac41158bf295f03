// Copyright (c) Stepflow Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type contracts of the stepflow engine.

types is the lowest-level public package and depends on no other internal
package. It defines the structured error system used across the workflow,
config, and internal packages so that every protocol failure (malformed
input, double decisions, unresolved references) is reported as a typed,
inspectable error rather than a bare string or a panic.

Core types:

  - Error / ErrorCode — structured errors with code, message, and cause
  - WrapError / AsError / IsErrorCode / GetErrorCode — error tool chain
*/
package types
