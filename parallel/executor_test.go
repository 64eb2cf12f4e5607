package parallel_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tailored-agentic-units/orchestrator/ledger"
	"github.com/tailored-agentic-units/orchestrator/observability"
	"github.com/tailored-agentic-units/orchestrator/parallel"
)

type capturingObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *capturingObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturingObserver) ofType(typ observability.EventType) []observability.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []observability.Event
	for _, e := range c.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func succeedingRunner(cost float64) parallel.TaskRunner {
	return func(ctx context.Context, def parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		rec := ledger.NewTaskRecord(def.Prompt, def.Model, def.MaxIterations, def.BudgetUSD, def.WorkingDir)
		rec.Usage.CostUSD = cost
		rec.Complete("ok")
		return rec, nil
	}
}

func TestRunEmptyInput(t *testing.T) {
	ex := parallel.New(parallel.DefaultConfig(), succeedingRunner(0))
	result, err := ex.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Results) != 0 {
		t.Errorf("results = %v, want empty", result.Results)
	}
}

func TestRunOrdersResultsByIndex(t *testing.T) {
	var calls atomic.Int32
	runner := func(ctx context.Context, def parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		n := calls.Add(1)
		rec := ledger.NewTaskRecord(def.Prompt, def.Model, 1, nil, "")
		rec.Usage.CostUSD = float64(n) * 0.01
		rec.Complete("ok")
		return rec, nil
	}

	defs := make([]parallel.TaskDefinition, 8)
	for i := range defs {
		defs[i] = parallel.TaskDefinition{Prompt: "task", MaxIterations: 1}
	}

	cfg := parallel.DefaultConfig()
	ex := parallel.New(cfg, runner)

	result, err := ex.Run(context.Background(), defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 8 || result.Failed != 0 {
		t.Errorf("succeeded=%d failed=%d, want 8/0", result.Succeeded, result.Failed)
	}
	for i, r := range result.Results {
		if r.Index != i {
			t.Errorf("result[%d].Index = %d, want %d", i, r.Index, i)
		}
	}
}

func TestRunFailFastCancelsUnadmittedTasks(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32
	runner := func(ctx context.Context, def parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		started.Add(1)
		if def.Prompt == "fail" {
			return nil, boom
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	cfg := parallel.Config{MaxWorkers: 1, FailFastNil: &trueVal}

	defs := []parallel.TaskDefinition{
		{Prompt: "fail"},
		{Prompt: "never runs"},
		{Prompt: "never runs"},
	}

	ex := parallel.New(cfg, runner)
	result, err := ex.Run(context.Background(), defs)
	if err == nil {
		t.Fatal("expected an error from the failing task")
	}
	var pErr *parallel.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("err = %v, want *parallel.Error", err)
	}

	for i, r := range result.Results {
		if i == 0 {
			continue
		}
		if r.Record == nil || r.Record.Status != ledger.TaskCancelled {
			t.Errorf("result[%d].Record = %v, want a Task Record with status Cancelled", i, r.Record)
		}
	}
}

var trueVal = true

func TestCalculateWorkerCountAutoDetectCappedByTaskCount(t *testing.T) {
	cfg := parallel.Config{WorkerCap: 16}
	ex := parallel.New(cfg, succeedingRunner(0))

	defs := []parallel.TaskDefinition{{Prompt: "a"}, {Prompt: "b"}}
	result, err := ex.Run(context.Background(), defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", result.Succeeded)
	}
}

func TestRunRespectsTotalBudget(t *testing.T) {
	budget := 0.015
	cfg := parallel.Config{MaxWorkers: 1, TotalBudgetUSD: &budget}
	var calls atomic.Int32
	runner := func(ctx context.Context, def parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		calls.Add(1)
		rec := ledger.NewTaskRecord(def.Prompt, def.Model, 1, nil, "")
		rec.Usage.CostUSD = 0.01
		rec.Complete("ok")
		return rec, nil
	}

	defs := []parallel.TaskDefinition{{Prompt: "a"}, {Prompt: "b"}, {Prompt: "c"}}
	ex := parallel.New(cfg, runner)

	result, err := ex.Run(context.Background(), defs)
	if err == nil {
		t.Fatal("expected an error once the shared budget is exhausted")
	}
	if result.Succeeded == 0 {
		t.Fatal("expected at least the first task to succeed before the budget tripped")
	}
	if calls.Load() >= int32(len(defs)) {
		t.Errorf("runner invoked %d times, want fewer than %d (budget should deny admission)", calls.Load(), len(defs))
	}

	var sawDenied bool
	for _, r := range result.Results {
		if r.Err == parallel.ErrBudgetExceeded {
			sawDenied = true
			if r.Record == nil || r.Record.Status != ledger.TaskBudgetExceeded {
				t.Errorf("denied result.Record = %v, want a Task Record with status BudgetExceeded", r.Record)
			}
		}
	}
	if !sawDenied {
		t.Fatal("expected at least one task to be denied admission with ErrBudgetExceeded")
	}
}

func TestRunEmitsTaskProgressAndDuration(t *testing.T) {
	runner := func(ctx context.Context, def parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		if progress != nil {
			progress(1, 5)
			progress(2, 5)
		}
		rec := ledger.NewTaskRecord(def.Prompt, def.Model, def.MaxIterations, def.BudgetUSD, def.WorkingDir)
		rec.Usage.CostUSD = 0.01
		rec.Complete("ok")
		return rec, nil
	}

	observer := &capturingObserver{}
	ex := parallel.New(parallel.DefaultConfig(), runner, parallel.WithObserver(observer))

	result, err := ex.Run(context.Background(), []parallel.TaskDefinition{{Prompt: "a"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progressEvents := observer.ofType(parallel.EventTaskProgress)
	if len(progressEvents) != 2 {
		t.Fatalf("progress events = %d, want 2", len(progressEvents))
	}
	if progressEvents[0].Data["iteration"] != 1 || progressEvents[1].Data["iteration"] != 2 {
		t.Errorf("progress events = %+v, want iterations 1 then 2", progressEvents)
	}

	if result.Duration <= 0 {
		t.Error("expected a positive wall-clock Duration on the aggregate result")
	}
}
