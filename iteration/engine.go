package iteration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tailored-agentic-units/orchestrator/adapter"
	"github.com/tailored-agentic-units/orchestrator/hooks"
	"github.com/tailored-agentic-units/orchestrator/ledger"
	"github.com/tailored-agentic-units/orchestrator/notify"
	"github.com/tailored-agentic-units/orchestrator/observability"
)

// Option configures an Engine after config-driven initialization.
type Option func(*Engine)

// WithAdapter overrides the config-created Agent Adapter.
func WithAdapter(a *adapter.Adapter) Option {
	return func(e *Engine) { e.adapter = a }
}

// WithHookRunner overrides the config-created Hook Runner.
func WithHookRunner(r *hooks.Runner) Option {
	return func(e *Engine) { e.hookRunner = r }
}

// WithNotifier overrides the config-created Notifier.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithCompletionStrategy overrides the config-resolved CompletionStrategy.
func WithCompletionStrategy(s CompletionStrategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithProgressFunc reports every iteration boundary to fn, in addition to
// whatever observer is already configured. Applying this option after any
// WithObserver wraps that observer rather than replacing it.
func WithProgressFunc(fn func(iteration, maxIterations int)) Option {
	return func(e *Engine) {
		e.observer = progressObserver{base: e.observer, fn: fn, maxIterations: e.cfg.MaxIterations}
	}
}

// progressObserver forwards every event to base, then reports iteration
// starts to fn for callers (the Parallel Executor) that only care about
// per-task progress, not the full event stream.
type progressObserver struct {
	base          observability.Observer
	fn            func(iteration, maxIterations int)
	maxIterations int
}

func (p progressObserver) OnEvent(ctx context.Context, event observability.Event) {
	p.base.OnEvent(ctx, event)
	if event.Type != EventIterationStart {
		return
	}
	if iteration, ok := event.Data["iteration"].(int); ok {
		p.fn(iteration, p.maxIterations)
	}
}

// Engine drives one bounded retry loop per Run call.
type Engine struct {
	cfg        Config
	ledger     *ledger.Ledger
	adapter    *adapter.Adapter
	hookRunner *hooks.Runner
	notifier   *notify.Notifier
	observer   observability.Observer
	strategy   CompletionStrategy
}

// New creates an Engine from cfg, persisting Task Records to ledg.
// Functional options applied after initialization can override any
// subsystem for testing.
func New(cfg Config, ledg *ledger.Ledger, opts ...Option) (*Engine, error) {
	notifier, err := notify.Build(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("iteration: build notifier: %w", err)
	}
	strategy, err := resolveStrategy(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		ledger:     ledg,
		adapter:    adapter.New(cfg.Adapter, nil),
		hookRunner: hooks.New(cfg.Hooks),
		notifier:   notifier,
		observer:   observability.NewSlogObserver(slog.Default()),
		strategy:   strategy,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Run executes the bounded retry loop against prompt, persisting a Task
// Record after every iteration. A Completed or Failed record is archived;
// any other terminal status leaves the record in the current slot.
func (e *Engine) Run(ctx context.Context, prompt string) (*ledger.TaskRecord, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	task := ledger.NewTaskRecord(prompt, e.cfg.Model, e.cfg.MaxIterations, e.cfg.BudgetUSD, e.cfg.WorkingDir)
	if err := e.ledger.SaveCurrent(task); err != nil {
		return task, fmt.Errorf("iteration: persist new task: %w", err)
	}

	e.emit(ctx, EventRunStart, task, map[string]any{"max_iterations": task.MaxIterations})

	if res := e.hookRunner.Execute(ctx, hooks.PreRun, e.hookContext(task)); res.Ran && !res.Ok {
		e.emit(ctx, EventHook, task, map[string]any{"hook": "pre_run", "ok": false})
		if e.hookRunner.Policy(hooks.PreRun) == hooks.PolicyAbort {
			task.Fail(ErrPreRunAborted.Error())
			e.hookRunner.Execute(ctx, hooks.OnError, e.hookContext(task))
			e.notifyLifecycle(ctx, notify.Error, task)
			e.finalize(ctx, task)
			return task, ErrPreRunAborted
		}
	}

	task.Start()
	_ = e.ledger.SaveCurrent(task)
	e.notifyLifecycle(ctx, notify.Started, task)

	var previousOutput string

	for iteration := 0; iteration < task.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			task.Interrupt()
			e.finalize(ctx, task)
			return task, ctx.Err()
		}

		if e.budgetExceeded(task) {
			return e.stopOnBudget(ctx, task)
		}

		iterPrompt := firstIterationPrompt(prompt, e.markerHint())
		if iteration > 0 {
			iterPrompt = continuationPrompt(prompt, previousOutput, e.markerHint())
		}

		e.emit(ctx, EventIterationStart, task, map[string]any{"iteration": iteration + 1})

		assistantText, outcome, interrupted := e.runOneIteration(ctx, iterPrompt)
		if interrupted {
			task.Interrupt()
			e.finalize(ctx, task)
			return task, ctx.Err()
		}

		task.RecordIteration(iteration, outcome.Usage)
		if outcome.SessionID != "" {
			task.SessionID = outcome.SessionID
		}
		_ = e.ledger.SaveCurrent(task)

		if outcome.Err != nil {
			task.Fail(outcome.Err.Error())
			e.emit(ctx, EventError, task, map[string]any{"error": outcome.Err.Error()})
			e.hookRunner.Execute(ctx, hooks.OnError, e.hookContext(task))
			e.notifyLifecycle(ctx, notify.Error, task)
			e.finalize(ctx, task)
			return task, outcome.Err
		}

		previousOutput = assistantText

		e.hookRunner.Execute(ctx, hooks.OnIteration, e.hookContext(task))
		e.emit(ctx, EventIterationComplete, task, map[string]any{"iteration": iteration + 1})

		if e.strategy.Detect(assistantText) {
			task.Complete(assistantText)
			e.hookRunner.Execute(ctx, hooks.OnComplete, e.hookContext(task))
			e.emit(ctx, EventRunComplete, task, map[string]any{"iterations": task.CurrentIteration})
			e.notifyLifecycle(ctx, notify.Completed, task)
			e.finalize(ctx, task)
			return task, nil
		}

		if e.budgetExceeded(task) {
			return e.stopOnBudget(ctx, task)
		}
	}

	task.MaxIterationsReached()
	e.emit(ctx, EventMaxIterations, task, map[string]any{"iterations": task.CurrentIteration})
	e.notifyLifecycle(ctx, notify.MaxIterations, task)
	e.finalize(ctx, task)
	return task, nil
}

func (e *Engine) stopOnBudget(ctx context.Context, task *ledger.TaskRecord) (*ledger.TaskRecord, error) {
	task.BudgetExceeded()
	e.emit(ctx, EventBudgetExceeded, task, map[string]any{"cost_usd": task.Usage.CostUSD})
	e.notifyLifecycle(ctx, notify.BudgetExceeded, task)
	e.finalize(ctx, task)
	return task, nil
}

// runOneIteration spawns one Agent Adapter invocation, concatenating every
// assistant event's text and waiting for the adapter's final Outcome.
// interrupted reports that ctx was cancelled while the child was running.
func (e *Engine) runOneIteration(ctx context.Context, prompt string) (assistantText string, outcome adapter.Outcome, interrupted bool) {
	events, outcomeCh := e.adapter.Execute(ctx, prompt)

	var sb strings.Builder
	for ev := range events {
		if ev.Kind == adapter.KindAssistant && ev.Assistant != nil {
			sb.WriteString(ev.Assistant.Message)
		}
	}

	out, ok := <-outcomeCh
	if !ok {
		out = adapter.Outcome{Err: errors.New("iteration: adapter outcome channel closed without a result")}
	}

	return sb.String(), out, ctx.Err() != nil
}

// finalize always runs post_run and records the task's cost. A Completed or
// Failed record is archived; any other terminal status is saved to the
// current slot instead.
func (e *Engine) finalize(ctx context.Context, task *ledger.TaskRecord) {
	e.hookRunner.Execute(ctx, hooks.PostRun, e.hookContext(task))

	if err := e.ledger.RecordCost(ledger.NewCostEntry(task)); err != nil {
		e.emit(ctx, EventError, task, map[string]any{"error": fmt.Sprintf("record cost failed: %v", err)})
	}
	if task.Status != ledger.TaskCompleted && task.Status != ledger.TaskFailed {
		if err := e.ledger.SaveCurrent(task); err != nil {
			e.emit(ctx, EventError, task, map[string]any{"error": fmt.Sprintf("save current failed: %v", err)})
		}
		return
	}
	if err := e.ledger.Archive(task); err != nil {
		e.emit(ctx, EventError, task, map[string]any{"error": fmt.Sprintf("archive failed: %v", err)})
	}
}

func (e *Engine) budgetExceeded(task *ledger.TaskRecord) bool {
	return e.cfg.BudgetUSD != nil && task.Usage.CostUSD >= *e.cfg.BudgetUSD
}

func (e *Engine) markerHint() string {
	if e.cfg.CompletionMarker != "" {
		return e.cfg.CompletionMarker
	}
	return DefaultCompletionMarker
}

func (e *Engine) hookContext(task *ledger.TaskRecord) hooks.Context {
	return hooks.Context{
		TaskID:          task.TaskID,
		PromptSummary:   task.Prompt,
		Model:           task.Model,
		Iteration:       task.CurrentIteration,
		TotalIterations: task.MaxIterations,
		CostUSD:         task.Usage.CostUSD,
		Status:          string(task.Status),
		Error:           task.Error,
		WorkingDir:      task.WorkingDir,
	}
}

func (e *Engine) notifyLifecycle(ctx context.Context, kind notify.Kind, task *ledger.TaskRecord) {
	env := notify.NewEnvelope(kind, task.TaskID).
		Model(task.Model).
		Iterations(task.CurrentIteration).
		CostUSD(task.Usage.CostUSD).
		Err(task.Error).
		Build()
	e.notifier.Notify(ctx, env)
}

func (e *Engine) emit(ctx context.Context, typ observability.EventType, task *ledger.TaskRecord, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["task_id"] = task.ShortID()
	e.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "iteration.Engine",
		Data:      data,
	})
}
