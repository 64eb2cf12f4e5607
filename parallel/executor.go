package parallel

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tailored-agentic-units/orchestrator/ledger"
	"github.com/tailored-agentic-units/orchestrator/observability"
)

// TaskDefinition is one unit of independent work for the Executor.
type TaskDefinition struct {
	Prompt        string   `json:"prompt"`
	Model         string   `json:"model,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
	BudgetUSD     *float64 `json:"budget_usd,omitempty"`
	WorkingDir    string   `json:"working_dir,omitempty"`
}

// ProgressFunc reports one iteration boundary within a running task.
// current is 1-indexed; max is the task's configured iteration cap.
type ProgressFunc func(current, max int)

// TaskRunner drives one TaskDefinition to completion, invoking progress (if
// non-nil) as the underlying work advances. In production this is an
// iteration.Engine's Run method wrapped to forward its iteration events;
// tests inject a fake.
type TaskRunner func(ctx context.Context, def TaskDefinition, progress ProgressFunc) (*ledger.TaskRecord, error)

// TaskResult is one task's outcome, always reported at its original index.
type TaskResult struct {
	Index      int
	Definition TaskDefinition
	Record     *ledger.TaskRecord
	Err        error
}

// Result aggregates a full Executor.Run call, in original task order.
type Result struct {
	Results      []TaskResult
	Succeeded    int
	Failed       int
	TotalCostUSD float64
	Duration     time.Duration
}

// Error reports that one or more tasks failed.
type Error struct {
	Failed []TaskResult
	Total  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("parallel: %d of %d task(s) failed", len(e.Failed), e.Total)
}

// Option configures an Executor after construction.
type Option func(*Executor)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// Executor runs a batch of TaskDefinitions concurrently under a fixed
// worker cap, a shared cost budget, and fail-fast cancellation.
type Executor struct {
	cfg      Config
	runner   TaskRunner
	observer observability.Observer
}

// New creates an Executor from cfg, driving every task through runner.
func New(cfg Config, runner TaskRunner, opts ...Option) *Executor {
	e := &Executor{
		cfg:      cfg,
		runner:   runner,
		observer: observability.NewSlogObserver(slog.Default()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every definition, returning results in input order. Workers
// are admitted up to calculateWorkerCount; the shared budget and fail-fast
// flag are both only consulted at the admission boundary — a task already
// running is never interrupted mid-flight, only tasks not yet admitted are
// denied.
func (e *Executor) Run(ctx context.Context, defs []TaskDefinition) (Result, error) {
	start := time.Now()

	if len(defs) == 0 {
		e.emit(ctx, EventStarted, map[string]any{"total": 0})
		e.emit(ctx, EventFinished, map[string]any{"succeeded": 0, "failed": 0, "total_cost_usd": 0.0})
		return Result{Duration: time.Since(start)}, nil
	}

	workers := calculateWorkerCount(e.cfg.MaxWorkers, e.cfg.WorkerCap, len(defs))
	sem := semaphore.NewWeighted(int64(workers))

	e.emit(ctx, EventStarted, map[string]any{"total": len(defs), "workers": workers, "fail_fast": e.cfg.FailFast()})

	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cancelled atomic.Bool
	var budgetMu sync.Mutex
	var spent float64

	results := make([]TaskResult, len(defs))
	var wg sync.WaitGroup

	for i, def := range defs {
		if cancelled.Load() {
			rec := ledger.NewTaskRecord(def.Prompt, def.Model, def.MaxIterations, def.BudgetUSD, def.WorkingDir)
			rec.Cancel()
			results[i] = TaskResult{Index: i, Definition: def, Record: rec, Err: ErrNotAdmitted}
			continue
		}

		if err := sem.Acquire(cancelCtx, 1); err != nil {
			rec := ledger.NewTaskRecord(def.Prompt, def.Model, def.MaxIterations, def.BudgetUSD, def.WorkingDir)
			rec.Cancel()
			results[i] = TaskResult{Index: i, Definition: def, Record: rec, Err: err}
			continue
		}

		if e.cfg.TotalBudgetUSD != nil {
			budgetMu.Lock()
			exceeded := spent >= *e.cfg.TotalBudgetUSD
			budgetMu.Unlock()
			if exceeded {
				sem.Release(1)
				rec := ledger.NewTaskRecord(def.Prompt, def.Model, def.MaxIterations, def.BudgetUSD, def.WorkingDir)
				rec.BudgetExceeded()
				results[i] = TaskResult{Index: i, Definition: def, Record: rec, Err: ErrBudgetExceeded}
				continue
			}
		}

		wg.Add(1)
		go func(i int, def TaskDefinition) {
			defer wg.Done()
			defer sem.Release(1)

			e.emit(cancelCtx, EventTaskStarted, map[string]any{"index": i})

			progress := func(current, max int) {
				e.emit(cancelCtx, EventTaskProgress, map[string]any{"index": i, "iteration": current, "max_iterations": max})
			}
			record, err := e.runner(ctx, def, progress)

			cost := 0.0
			if record != nil {
				cost = record.Usage.CostUSD
			}
			budgetMu.Lock()
			spent += cost
			budgetMu.Unlock()

			e.emit(cancelCtx, EventTaskComplete, map[string]any{"index": i, "error": err != nil})

			results[i] = TaskResult{Index: i, Definition: def, Record: record, Err: err}

			if err != nil && e.cfg.FailFast() {
				cancelled.Store(true)
				cancel()
			}
		}(i, def)
	}

	wg.Wait()

	agg := Result{Results: results, Duration: time.Since(start)}
	var failed []TaskResult
	for _, r := range results {
		if r.Record != nil {
			agg.TotalCostUSD += r.Record.Usage.CostUSD
		}
		if r.Err != nil {
			agg.Failed++
			failed = append(failed, r)
		} else {
			agg.Succeeded++
		}
	}

	e.emit(ctx, EventFinished, map[string]any{
		"succeeded":      agg.Succeeded,
		"failed":         agg.Failed,
		"total_cost_usd": agg.TotalCostUSD,
		"duration_ms":    agg.Duration.Milliseconds(),
	})

	if len(failed) > 0 && (e.cfg.FailFast() || agg.Succeeded == 0) {
		return agg, &Error{Failed: failed, Total: len(results)}
	}

	return agg, nil
}

// calculateWorkerCount auto-detects min(NumCPU*2, workerCap, taskCount)
// when maxWorkers is 0, else returns the exact configured count.
func calculateWorkerCount(maxWorkers, workerCap, taskCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}
	workers := min(min(runtime.NumCPU()*2, workerCap), taskCount)
	if workers <= 0 {
		workers = 1
	}
	return workers
}

func (e *Executor) emit(ctx context.Context, typ observability.EventType, data map[string]any) {
	e.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "parallel.Executor",
		Data:      data,
	})
}
