// Package notify fans out lifecycle envelopes (Started, Completed, Error,
// BudgetExceeded, MaxIterations) to one or more configured sinks,
// best-effort: sink errors are logged, never returned. Notify waits for
// every matching sink before it returns.
package notify
