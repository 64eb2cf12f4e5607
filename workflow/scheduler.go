package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/orchestrator/iteration"
	"github.com/tailored-agentic-units/orchestrator/ledger"
	"github.com/tailored-agentic-units/orchestrator/observability"
	"github.com/tailored-agentic-units/orchestrator/parallel"
)

// Scheduler event types.
const (
	EventWorkflowStart observability.EventType = "workflow.start"
	EventGroupStart    observability.EventType = "workflow.group.start"
	EventGroupComplete observability.EventType = "workflow.group.complete"
	EventWorkflowEnd   observability.EventType = "workflow.end"
)

// NewStepRunner adapts an iteration.Config baseline into a parallel.TaskRunner,
// overriding model/iterations/budget/working-dir per step from the
// parallel.TaskDefinition the Scheduler builds, and forwarding the
// underlying Iteration Engine's per-iteration progress to the Executor.
func NewStepRunner(baseCfg iteration.Config, ledg *ledger.Ledger, opts ...iteration.Option) parallel.TaskRunner {
	return func(ctx context.Context, def parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		cfg := baseCfg
		if def.Model != "" {
			cfg.Model = def.Model
		}
		if def.MaxIterations > 0 {
			cfg.MaxIterations = def.MaxIterations
		}
		if def.BudgetUSD != nil {
			cfg.BudgetUSD = def.BudgetUSD
		}
		if def.WorkingDir != "" {
			cfg.WorkingDir = def.WorkingDir
		}

		stepOpts := opts
		if progress != nil {
			stepOpts = append(append([]iteration.Option{}, opts...), iteration.WithProgressFunc(progress))
		}

		eng, err := iteration.New(cfg, ledg, stepOpts...)
		if err != nil {
			return nil, fmt.Errorf("workflow: build engine for step: %w", err)
		}
		return eng.Run(ctx, def.Prompt)
	}
}

// Option configures a Scheduler after construction.
type Option func(*Scheduler)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// Scheduler drives a Definition's execution groups through the Parallel
// Executor, persisting a ledger.WorkflowState after every group.
type Scheduler struct {
	ledger   *ledger.Ledger
	runner   parallel.TaskRunner
	observer observability.Observer
}

// NewScheduler creates a Scheduler persisting to ledg and driving every
// step through runner (typically built with NewStepRunner).
func NewScheduler(ledg *ledger.Ledger, runner parallel.TaskRunner, opts ...Option) *Scheduler {
	s := &Scheduler{
		ledger:   ledg,
		runner:   runner,
		observer: observability.NewSlogObserver(slog.Default()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run validates def and executes every group in order, from scratch.
func (s *Scheduler) Run(ctx context.Context, def *Definition) (*ledger.WorkflowState, error) {
	warnings, err := def.Validate()
	for _, w := range warnings {
		s.observer.OnEvent(ctx, observability.Event{
			Type: EventWorkflowStart, Level: observability.LevelWarning,
			Timestamp: time.Now(), Source: "workflow.Scheduler",
			Data: map[string]any{"warning": w},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: validate: %w", err)
	}

	order, err := def.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	state := ledger.NewWorkflowState(def.Name, "", order)
	if err := s.ledger.SaveWorkflowState(state); err != nil {
		return state, fmt.Errorf("workflow: persist initial state: %w", err)
	}
	state.MarkRunning()

	return s.runGroups(ctx, def, state, map[string]bool{})
}

// Resume loads a Failed or Cancelled Workflow State by id and continues
// execution from the first group with an incomplete step.
func (s *Scheduler) Resume(ctx context.Context, workflowID string, def *Definition) (*ledger.WorkflowState, error) {
	state, err := s.ledger.LoadWorkflowState(workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load state %s: %w", workflowID, err)
	}
	if !state.CanResume() {
		return state, ErrNotResumable
	}

	if _, err := def.Validate(); err != nil {
		return state, fmt.Errorf("workflow: validate: %w", err)
	}

	completed := state.CompletedSteps()
	state.MarkRunning()

	return s.runGroups(ctx, def, state, completed)
}

func (s *Scheduler) runGroups(ctx context.Context, def *Definition, state *ledger.WorkflowState, completed map[string]bool) (*ledger.WorkflowState, error) {
	groups := def.ExecutionGroups()

	s.emit(ctx, EventWorkflowStart, map[string]any{"workflow_id": state.WorkflowID, "groups": len(groups)})

	for groupIndex, group := range groups {
		pending := make([]Step, 0, len(group))
		for _, step := range group {
			if !completed[step.Name] {
				pending = append(pending, step)
			}
		}
		if len(pending) == 0 {
			continue
		}

		state.CurrentGroup = groupIndex
		s.emit(ctx, EventGroupStart, map[string]any{"group": groupIndex, "steps": len(pending)})

		defs := make([]parallel.TaskDefinition, len(pending))
		for i, step := range pending {
			defs[i] = parallel.TaskDefinition{
				Prompt:        step.Prompt,
				Model:         step.Model,
				MaxIterations: step.MaxIterations,
				BudgetUSD:     step.BudgetUSD,
			}
			state.UpdateStep(step.Name, ledger.StepRunning, step.Model, 0, "")
		}
		_ = s.ledger.SaveWorkflowState(state)

		execCfg := parallel.DefaultConfig()
		if def.Global.MaxParallelWorkers > 0 {
			execCfg.MaxWorkers = def.Global.MaxParallelWorkers
		}
		executor := parallel.New(execCfg, s.runner, parallel.WithObserver(s.observer))

		result, runErr := executor.Run(ctx, defs)

		groupFailed := false
		for i, r := range result.Results {
			step := pending[i]
			status := ledger.StepCompleted
			errStr := ""
			cost := 0.0

			if r.Record != nil {
				cost = r.Record.Usage.CostUSD
				if r.Record.Status != ledger.TaskCompleted {
					status = ledger.StepFailed
					errStr = r.Record.Error
					if errStr == "" {
						errStr = string(r.Record.Status)
					}
				}
			}
			if r.Err != nil {
				status = ledger.StepFailed
				errStr = r.Err.Error()
			}

			state.UpdateStep(step.Name, status, step.Model, cost, errStr)
			if status == ledger.StepCompleted {
				completed[step.Name] = true
			} else {
				groupFailed = true
			}
		}

		_ = s.ledger.SaveWorkflowState(state)
		s.emit(ctx, EventGroupComplete, map[string]any{"group": groupIndex, "failed": groupFailed})

		if groupFailed || runErr != nil {
			state.MarkFailed()
			_ = s.ledger.SaveWorkflowState(state)
			s.emit(ctx, EventWorkflowEnd, map[string]any{"workflow_id": state.WorkflowID, "status": string(state.Status)})
			return state, fmt.Errorf("workflow: group %d failed", groupIndex)
		}
	}

	state.MarkCompleted()
	_ = s.ledger.SaveWorkflowState(state)
	s.emit(ctx, EventWorkflowEnd, map[string]any{"workflow_id": state.WorkflowID, "status": string(state.Status)})
	return state, nil
}

func (s *Scheduler) emit(ctx context.Context, typ observability.EventType, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type: typ, Level: observability.LevelInfo, Timestamp: time.Now(),
		Source: "workflow.Scheduler", Data: data,
	})
}
