package ledger

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus is the lifecycle status of a Workflow State.
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// StepStatus is the lifecycle status of one Workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepState is the persisted status of one step within a Workflow State.
type StepState struct {
	Status      StepStatus `json:"status"`
	Model       string     `json:"model,omitempty"`
	CostUSD     float64    `json:"cost_usd"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WorkflowState is the persisted representation of one workflow run. The
// Ledger owns its storage directly; the Workflow DAG Scheduler holds a
// transient handle updated in place and flushed after each group.
type WorkflowState struct {
	WorkflowID   string               `json:"workflow_id"`
	FilePath     string               `json:"file_path"`
	Name         string               `json:"name"`
	Status       WorkflowStatus       `json:"status"`
	CurrentGroup int                  `json:"current_group"`
	Steps        map[string]StepState `json:"steps"`
	TotalCostUSD float64              `json:"total_cost_usd"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewWorkflowState creates a Pending Workflow State for every step name.
func NewWorkflowState(name, filePath string, stepNames []string) *WorkflowState {
	now := time.Now().UTC()
	steps := make(map[string]StepState, len(stepNames))
	for _, n := range stepNames {
		steps[n] = StepState{Status: StepPending}
	}
	return &WorkflowState{
		WorkflowID: uuid.NewString(),
		FilePath:   filePath,
		Name:       name,
		Status:     WorkflowPending,
		Steps:      steps,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (w *WorkflowState) touch() {
	now := time.Now().UTC()
	if now.Before(w.UpdatedAt) {
		now = w.UpdatedAt
	}
	w.UpdatedAt = now
}

// UpdateStep transitions a step forward and accumulates its cost into the
// workflow total. Timestamps are stamped on entering Running and on
// leaving to a terminal step status.
func (w *WorkflowState) UpdateStep(name string, status StepStatus, model string, costUSD float64, stepErr string) {
	s := w.Steps[name]
	s.Status = status
	if model != "" {
		s.Model = model
	}

	now := time.Now().UTC()
	switch status {
	case StepRunning:
		if s.StartedAt == nil {
			s.StartedAt = &now
		}
	case StepCompleted, StepFailed, StepSkipped:
		s.CompletedAt = &now
		delta := costUSD - s.CostUSD
		w.TotalCostUSD += delta
		s.CostUSD = costUSD
		if stepErr != "" {
			s.Error = stepErr
		}
	}

	w.Steps[name] = s
	w.touch()
}

// AllCompleted reports whether every step has reached Completed.
func (w *WorkflowState) AllCompleted() bool {
	for _, s := range w.Steps {
		if s.Status != StepCompleted {
			return false
		}
	}
	return true
}

// MarkRunning transitions Pending -> Running.
func (w *WorkflowState) MarkRunning() {
	w.Status = WorkflowRunning
	w.touch()
}

// MarkCompleted transitions to Completed. Callers should only do this once
// AllCompleted reports true.
func (w *WorkflowState) MarkCompleted() {
	w.Status = WorkflowCompleted
	w.touch()
}

// MarkFailed transitions to Failed.
func (w *WorkflowState) MarkFailed() {
	w.Status = WorkflowFailed
	w.touch()
}

// CanResume reports whether this workflow run may be resumed.
func (w *WorkflowState) CanResume() bool {
	return w.Status == WorkflowFailed || w.Status == WorkflowCancelled
}

// CompletedSteps returns the set of step names already Completed, used to
// seed a fresh scheduler on resume.
func (w *WorkflowState) CompletedSteps() map[string]bool {
	completed := make(map[string]bool)
	for name, s := range w.Steps {
		if s.Status == StepCompleted {
			completed[name] = true
		}
	}
	return completed
}
