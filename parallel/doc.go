// Package parallel implements the worker-pool executor that runs many
// independent tasks concurrently under a fixed worker cap, a shared total
// cost budget, and fail-fast cancellation.
//
// Unlike a generic map-reduce, Executor is concrete to TaskDefinition and
// TaskResult: every task is driven through an injected TaskRunner (in
// production, an iteration.Engine wrapped by workflow.NewStepRunner), and
// results are always returned in the same order as the input slice
// regardless of completion order.
package parallel
