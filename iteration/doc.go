// Package iteration implements the bounded retry loop that drives one
// Agent Adapter invocation per iteration against a single prompt until
// completion is detected, the iteration budget is exhausted, the cost
// budget is exceeded, or the agent fails outright.
//
// Engine composes an adapter.Adapter, a ledger.Ledger, a hooks.Runner and
// a notify.Notifier, persisting a ledger.TaskRecord after every iteration
// so a task can be resumed from the last durable state after a crash.
package iteration
