package workflow_test

import (
	"context"
	"testing"

	"github.com/tailored-agentic-units/orchestrator/ledger"
	"github.com/tailored-agentic-units/orchestrator/parallel"
	"github.com/tailored-agentic-units/orchestrator/workflow"
)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(t.TempDir())
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	return l
}

func succeedingRunner(t *testing.T, order *[]string) parallel.TaskRunner {
	return func(ctx context.Context, def parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		*order = append(*order, def.Prompt)
		rec := ledger.NewTaskRecord(def.Prompt, def.Model, def.MaxIterations, def.BudgetUSD, def.WorkingDir)
		rec.Usage.CostUSD = 0.01
		rec.Complete("ok")
		return rec, nil
	}
}

func threeStepDefinition() *workflow.Definition {
	return &workflow.Definition{
		Name: "build-and-ship",
		Steps: []workflow.Step{
			{Name: "design", Prompt: "design", ParallelGroup: 0},
			{Name: "impl-a", Prompt: "impl-a", ParallelGroup: 1, DependsOn: []string{"design"}},
			{Name: "impl-b", Prompt: "impl-b", ParallelGroup: 1, DependsOn: []string{"design"}},
			{Name: "ship", Prompt: "ship", ParallelGroup: 2, DependsOn: []string{"impl-a", "impl-b"}},
		},
	}
}

func TestSchedulerRunExecutesGroupsInTopologicalOrder(t *testing.T) {
	def := threeStepDefinition()
	ledg := newLedger(t)

	var calls []string
	sched := workflow.NewScheduler(ledg, succeedingRunner(t, &calls))

	state, err := sched.Run(context.Background(), def)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Status != ledger.WorkflowCompleted {
		t.Fatalf("status = %s, want Completed", state.Status)
	}
	if !state.AllCompleted() {
		t.Fatal("expected all steps Completed")
	}

	if calls[0] != "design" {
		t.Errorf("first call = %q, want design", calls[0])
	}
	if calls[len(calls)-1] != "ship" {
		t.Errorf("last call = %q, want ship", calls[len(calls)-1])
	}

	groups := def.ExecutionGroups()
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
}

func TestSchedulerResumeContinuesAfterFailure(t *testing.T) {
	def := threeStepDefinition()
	ledg := newLedger(t)

	failOn := "impl-a"
	var calls []string
	failingThenOK := func(ctx context.Context, tdef parallel.TaskDefinition, progress parallel.ProgressFunc) (*ledger.TaskRecord, error) {
		calls = append(calls, tdef.Prompt)
		rec := ledger.NewTaskRecord(tdef.Prompt, tdef.Model, tdef.MaxIterations, tdef.BudgetUSD, tdef.WorkingDir)
		if tdef.Prompt == failOn {
			rec.Fail("boom")
			return rec, nil
		}
		rec.Usage.CostUSD = 0.01
		rec.Complete("ok")
		return rec, nil
	}

	sched := workflow.NewScheduler(ledg, failingThenOK)
	state, err := sched.Run(context.Background(), def)
	if err == nil {
		t.Fatal("expected an error from the failing step")
	}
	if state.Status != ledger.WorkflowFailed {
		t.Fatalf("status = %s, want Failed", state.Status)
	}
	if state.Steps["design"].Status != ledger.StepCompleted {
		t.Fatalf("design status = %s, want Completed", state.Steps["design"].Status)
	}
	if state.Steps["impl-a"].Status != ledger.StepFailed {
		t.Fatalf("impl-a status = %s, want Failed", state.Steps["impl-a"].Status)
	}
	if state.Steps["ship"].Status != ledger.StepPending {
		t.Fatalf("ship status = %s, want Pending (never reached)", state.Steps["ship"].Status)
	}

	calls = nil
	resumedSched := workflow.NewScheduler(ledg, succeedingRunner(t, &calls))
	resumed, err := resumedSched.Resume(context.Background(), state.WorkflowID, def)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != ledger.WorkflowCompleted {
		t.Fatalf("resumed status = %s, want Completed", resumed.Status)
	}
	if !resumed.AllCompleted() {
		t.Fatal("expected all steps Completed after resume")
	}

	for _, c := range calls {
		if c == "design" {
			t.Errorf("resume re-ran already-completed step %q", c)
		}
	}
}

func TestSchedulerRunRejectsInvalidDefinition(t *testing.T) {
	def := &workflow.Definition{Name: "bad", Steps: []workflow.Step{
		{Name: "a", Prompt: "a", ParallelGroup: 0, DependsOn: []string{"a"}},
	}}
	ledg := newLedger(t)
	var calls []string
	sched := workflow.NewScheduler(ledg, succeedingRunner(t, &calls))

	_, err := sched.Run(context.Background(), def)
	if err == nil {
		t.Fatal("expected validation error for a step depending on itself")
	}
}
