// Copyright (c) Stepflow Authors.
// Licensed under the MIT License.

/*
Package workflow implements the stepflow orchestration core: the data and
policy contracts an external executor composes to run automated multi-step
operations with dependency ordering, human-approval gating, and recoverable
failure handling.

The package holds no scheduler and performs no I/O. It is pure data plus
policy functions; all waiting (human approval, long-running agent calls)
happens in the surrounding executor.

Core types:

  - Workflow / WorkflowStep — the step DAG (agent, command, and condition
    variants) with dependencies, approval flags, and error policies
  - StateManager / WorkflowState — step lifecycle bookkeeping
  - ConditionEvaluator — resolves branch expressions against step outputs
  - RiskScorer / SafetyConstraints — quantify per-step risk and bound
    execution (timeout ceiling, rollback capability)
  - ApprovalGate — in-memory ledger of one-shot human approval decisions
  - ErrorHandler / RetryState — on_error policy dispatch, structured error
    capture, exponential retry backoff
  - RollbackManager — execution ledger and whole-state restore

Capabilities:

  - Workflow validation: unique ids, resolvable dependencies, acyclic
    dependency graph, per-variant configuration checks
  - WorkflowBuilder fluent construction and JSON/YAML interchange
  - Condition expressions: "<step>.output.<path> <op> <literal>" with
    type-aware comparison over recorded step output JSON
  - Error policies: fail / skip / retry (exponential backoff) / rollback

Concurrency: a WorkflowState instance is owned by one logical StateManager
session per running workflow; callers serialize mutations. ApprovalGate is
safe for concurrent use; each request's pending-to-terminal transition is
a single compare-and-set.
*/
package workflow
