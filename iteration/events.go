package iteration

import "github.com/tailored-agentic-units/orchestrator/observability"

// Iteration Engine event types.
const (
	EventRunStart          observability.EventType = "iteration.run.start"
	EventRunComplete       observability.EventType = "iteration.run.complete"
	EventIterationStart    observability.EventType = "iteration.iteration.start"
	EventIterationComplete observability.EventType = "iteration.iteration.complete"
	EventBudgetExceeded    observability.EventType = "iteration.budget.exceeded"
	EventMaxIterations     observability.EventType = "iteration.max_iterations"
	EventHook              observability.EventType = "iteration.hook"
	EventError             observability.EventType = "iteration.error"
)
