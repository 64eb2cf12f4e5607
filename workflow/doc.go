// Package workflow turns a YAML-defined dependency graph of steps into a
// sequence of Parallel Executor batches.
//
// Steps declare a parallel_group and optional depends_on names. Scheduler
// groups steps by ascending parallel_group, submits each group as one
// Parallel Executor batch, and persists a ledger.WorkflowState after every
// group so a failed or cancelled run can resume from its last completed
// group.
package workflow
