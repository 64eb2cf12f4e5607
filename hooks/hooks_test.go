package hooks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/orchestrator/hooks"
)

func TestExecuteNoOpWhenUnconfigured(t *testing.T) {
	r := hooks.New(hooks.DefaultConfig())
	res := r.Execute(context.Background(), hooks.PreRun, hooks.Context{})
	if !res.Ok || res.Ran {
		t.Errorf("expected no-op success, got %+v", res)
	}
}

func TestExecuteRunsConfiguredCommand(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	cfg := hooks.DefaultConfig()
	cfg.Hooks[hooks.OnComplete] = hooks.HookConfig{
		Command: "/usr/bin/touch",
		Args:    []string{marker},
	}
	r := hooks.New(cfg)

	res := r.Execute(context.Background(), hooks.OnComplete, hooks.Context{TaskID: "t1"})
	if !res.Ok {
		t.Fatalf("Execute failed: %+v", res)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected marker file to exist: %v", err)
	}
}

func TestExecuteTimeout(t *testing.T) {
	cfg := hooks.DefaultConfig()
	cfg.Hooks[hooks.PreRun] = hooks.HookConfig{
		Command: "/bin/sleep",
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	}
	r := hooks.New(cfg)

	res := r.Execute(context.Background(), hooks.PreRun, hooks.Context{})
	if res.Ok {
		t.Fatalf("expected timeout failure, got success")
	}
}

func TestPolicyDefaults(t *testing.T) {
	r := hooks.New(hooks.DefaultConfig())
	if r.Policy(hooks.PreRun) != hooks.PolicyAbort {
		t.Errorf("pre_run default policy should be abort")
	}
	if r.Policy(hooks.OnIteration) != hooks.PolicyContinue {
		t.Errorf("on_iteration default policy should be continue")
	}
}

func TestPolicyOverride(t *testing.T) {
	cfg := hooks.DefaultConfig()
	abort := hooks.PolicyAbort
	cfg.Hooks[hooks.OnError] = hooks.HookConfig{Command: "/bin/true", Policy: &abort}
	r := hooks.New(cfg)

	if r.Policy(hooks.OnError) != hooks.PolicyAbort {
		t.Errorf("expected overridden abort policy for on_error")
	}
}
