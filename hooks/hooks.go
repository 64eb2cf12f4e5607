package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Context carries the lifecycle information exposed to a hook command, both
// as env vars and for the caller's own bookkeeping.
type Context struct {
	TaskID          string
	PromptSummary   string
	Model           string
	Iteration       int
	TotalIterations int
	CostUSD         float64
	Status          string
	Error           string
	WorkingDir      string
}

// Result is the outcome of one hook invocation.
type Result struct {
	Ran    bool
	Ok     bool
	Err    error
	Stdout string
	Stderr string
}

// Runner executes configured hook commands.
type Runner struct {
	cfg Config
}

// New creates a Runner from cfg.
func New(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Policy returns the failure policy that applies to typ, honoring any
// per-hook override.
func (r *Runner) Policy(typ Type) Policy {
	return r.cfg.Hooks[typ].policy(typ)
}

// Execute runs the command bound to typ, if any. It never blocks the
// caller beyond the hook's own timeout (default 60s); on expiry the child
// is killed and Result.Err is ErrTimeout.
func (r *Runner) Execute(ctx context.Context, typ Type, hctx Context) Result {
	if !r.cfg.Enabled {
		return Result{Ran: false, Ok: true}
	}
	hc, configured := r.cfg.Hooks[typ]
	if !configured || hc.Command == "" {
		return Result{Ran: false, Ok: true}
	}

	runCtx, cancel := context.WithTimeout(ctx, hc.timeout())
	defer cancel()

	cmd := exec.CommandContext(runCtx, hc.Command, hc.Args...)
	if hctx.WorkingDir != "" {
		cmd.Dir = hctx.WorkingDir
	}
	cmd.Env = append(os.Environ(), hookEnv(typ, hctx, hc.Extra)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Ran:    true,
			Ok:     false,
			Err:    fmt.Errorf("hook %s: %w", typ, ErrTimeout),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
	}
	if err != nil {
		return Result{
			Ran:    true,
			Ok:     false,
			Err:    fmt.Errorf("hook %s: %w", typ, err),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
	}

	return Result{Ran: true, Ok: true, Stdout: stdout.String(), Stderr: stderr.String()}
}

func hookEnv(typ Type, hctx Context, extra map[string]string) []string {
	summary := hctx.PromptSummary
	if r := []rune(summary); len(r) > 1000 {
		summary = string(r[:1000])
	}

	env := []string{
		"HOOK_TYPE=" + string(typ),
		"HOOK_TASK_ID=" + hctx.TaskID,
		"HOOK_PROMPT_SUMMARY=" + summary,
		"HOOK_MODEL=" + hctx.Model,
		"HOOK_ITERATION=" + itoa(hctx.Iteration),
		"HOOK_TOTAL_ITERATIONS=" + itoa(hctx.TotalIterations),
		"HOOK_COST_USD=" + formatCost(hctx.CostUSD),
		"HOOK_STATUS=" + hctx.Status,
		"HOOK_ERROR=" + hctx.Error,
		"HOOK_WORKING_DIR=" + hctx.WorkingDir,
	}
	for k, v := range extra {
		env = append(env, "HOOK_"+k+"="+v)
	}
	return env
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

func formatCost(cost float64) string {
	return fmt.Sprintf("%.4f", cost)
}
