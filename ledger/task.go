package ledger

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle status of a Task Record.
type TaskStatus string

const (
	TaskPending              TaskStatus = "pending"
	TaskRunning              TaskStatus = "running"
	TaskCompleted            TaskStatus = "completed"
	TaskMaxIterationsReached TaskStatus = "max_iterations_reached"
	TaskBudgetExceeded       TaskStatus = "budget_exceeded"
	TaskFailed               TaskStatus = "failed"
	TaskInterrupted          TaskStatus = "interrupted"
	TaskCancelled            TaskStatus = "cancelled"
)

// resumable is the set of statuses a caller may resume from.
var resumable = map[TaskStatus]bool{
	TaskRunning:     true,
	TaskFailed:      true,
	TaskInterrupted: true,
	TaskCancelled:   true,
}

// Usage holds token and cost accumulation for a Task Record.
type Usage struct {
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CostUSD             float64 `json:"cost_usd"`
	DurationMS          int64   `json:"duration_ms"`
}

// Add accumulates deltas from one iteration's usage into the total.
func (u *Usage) Add(delta Usage) {
	u.InputTokens += delta.InputTokens
	u.OutputTokens += delta.OutputTokens
	u.CacheReadTokens += delta.CacheReadTokens
	u.CacheCreationTokens += delta.CacheCreationTokens
	u.CostUSD += delta.CostUSD
	if delta.DurationMS > 0 {
		u.DurationMS += delta.DurationMS
	}
}

// TaskRecord is the persisted representation of one Iteration Engine run.
// Inputs are immutable after creation; lifecycle fields mutate in place
// until the record reaches a terminal status and is archived.
type TaskRecord struct {
	TaskID string `json:"task_id"`

	// Inputs, fixed at creation.
	Prompt        string   `json:"prompt"`
	Model         string   `json:"model"`
	MaxIterations int      `json:"max_iterations"`
	BudgetUSD     *float64 `json:"budget_usd,omitempty"`
	WorkingDir    string   `json:"working_dir,omitempty"`

	// Lifecycle.
	Status           TaskStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CurrentIteration int        `json:"current_iteration"`
	Usage            Usage      `json:"usage"`
	SessionID        string     `json:"session_id,omitempty"`
	Error            string     `json:"error,omitempty"`
	FinalOutput      string     `json:"final_output,omitempty"`
}

// NewTaskRecord creates a Pending Task Record for a fresh prompt.
func NewTaskRecord(prompt, model string, maxIterations int, budgetUSD *float64, workingDir string) *TaskRecord {
	now := time.Now().UTC()
	return &TaskRecord{
		TaskID:        uuid.NewString(),
		Prompt:        prompt,
		Model:         model,
		MaxIterations: maxIterations,
		BudgetUSD:     budgetUSD,
		WorkingDir:    workingDir,
		Status:        TaskPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ShortID returns the first 8 characters of the task id, for display.
func (t *TaskRecord) ShortID() string {
	if len(t.TaskID) <= 8 {
		return t.TaskID
	}
	return t.TaskID[:8]
}

// touch advances UpdatedAt, preserving the monotone-non-decreasing
// timestamp invariant.
func (t *TaskRecord) touch() {
	now := time.Now().UTC()
	if now.Before(t.UpdatedAt) {
		now = t.UpdatedAt
	}
	t.UpdatedAt = now
}

// Start transitions Pending -> Running.
func (t *TaskRecord) Start() {
	t.Status = TaskRunning
	t.touch()
}

// RecordIteration advances the iteration counter and merges usage deltas.
// current_iteration must never exceed max_iterations.
func (t *TaskRecord) RecordIteration(iteration int, delta Usage) {
	if iteration+1 > t.CurrentIteration {
		t.CurrentIteration = iteration + 1
	}
	if t.CurrentIteration > t.MaxIterations {
		t.CurrentIteration = t.MaxIterations
	}
	t.Usage.Add(delta)
	t.touch()
}

// Complete marks the record Completed with its final output.
func (t *TaskRecord) Complete(output string) {
	t.Status = TaskCompleted
	t.FinalOutput = output
	t.touch()
}

// Fail marks the record Failed with an error string.
func (t *TaskRecord) Fail(err string) {
	t.Status = TaskFailed
	t.Error = err
	t.touch()
}

// Interrupt marks the record Interrupted (caller dropped the event stream
// while an iteration was still running).
func (t *TaskRecord) Interrupt() {
	t.Status = TaskInterrupted
	t.touch()
}

// MaxIterationsReached marks the record terminal without completion.
func (t *TaskRecord) MaxIterationsReached() {
	t.Status = TaskMaxIterationsReached
	t.touch()
}

// BudgetExceeded marks the record terminal on a budget gate trip.
func (t *TaskRecord) BudgetExceeded() {
	t.Status = TaskBudgetExceeded
	t.touch()
}

// Cancel marks the record Cancelled without ever invoking its engine
// (Parallel Executor fail-fast).
func (t *TaskRecord) Cancel() {
	t.Status = TaskCancelled
	t.touch()
}

// Terminal reports whether the status accepts no further mutation.
func (t *TaskRecord) Terminal() bool {
	switch t.Status {
	case TaskCompleted, TaskFailed, TaskMaxIterationsReached, TaskBudgetExceeded, TaskInterrupted, TaskCancelled:
		return true
	default:
		return false
	}
}

// CanResume reports whether this status is in the resumable set.
func (t *TaskRecord) CanResume() bool {
	return resumable[t.Status]
}
