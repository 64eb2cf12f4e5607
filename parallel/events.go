package parallel

import "github.com/tailored-agentic-units/orchestrator/observability"

// Parallel Executor event types.
const (
	EventStarted      observability.EventType = "parallel.started"
	EventTaskStarted  observability.EventType = "parallel.task.started"
	EventTaskProgress observability.EventType = "parallel.task.progress"
	EventTaskComplete observability.EventType = "parallel.task.complete"
	EventFinished     observability.EventType = "parallel.finished"
)
