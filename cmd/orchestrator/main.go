// Command orchestrator is the CLI entrypoint for the Iteration Engine,
// Parallel Executor, and Workflow DAG Scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/tailored-agentic-units/orchestrator/iteration"
	"github.com/tailored-agentic-units/orchestrator/ledger"
	"github.com/tailored-agentic-units/orchestrator/observability"
	"github.com/tailored-agentic-units/orchestrator/parallel"
	"github.com/tailored-agentic-units/orchestrator/workflow"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "run":
		runCommand(args)
	case "parallel":
		parallelCommand(args)
	case "workflow":
		workflowCommand(args)
	case "resume":
		resumeCommand(args)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "orchestrator: unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: orchestrator <command> [flags]

Commands:
  run       Run a single task to completion
  parallel  Run independent tasks concurrently from a JSON batch file
  workflow  Validate, run, or resume a YAML dependency-graph workflow
  resume    List tasks eligible for resumption`)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		configFile    = fs.String("config", "", "Path to iteration config JSON file")
		ledgerDir     = fs.String("ledger", ".orchestrator", "Path to ledger state directory")
		prompt        = fs.String("prompt", "", "Prompt to send to the agent (required)")
		model         = fs.String("model", "", "Model name (overrides config)")
		maxIterations = fs.Int("max-iterations", 0, "Maximum iteration count (overrides config)")
		budgetUSD     = fs.Float64("budget", 0, "Total cost budget in USD; 0 for unlimited (overrides config)")
		workingDir    = fs.String("working-dir", "", "Working directory for the spawned agent")
		verbose       = fs.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	fs.Parse(args)

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "Usage: orchestrator run -prompt <text> [-config <file>]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg := iteration.DefaultConfig()
	if *configFile != "" {
		loaded, err := iteration.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = *loaded
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *maxIterations > 0 {
		cfg.MaxIterations = *maxIterations
	}
	if *budgetUSD > 0 {
		cfg.BudgetUSD = budgetUSD
	}
	if *workingDir != "" {
		cfg.WorkingDir = *workingDir
	}

	ledg, err := ledger.New(*ledgerDir)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}

	logger := newLogger(*verbose)
	eng, err := iteration.New(cfg, ledg)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	ctx, stop := interruptContext()
	defer stop()

	record, err := eng.Run(ctx, *prompt)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	logger.Info("task finished", "task_id", record.ShortID(), "status", record.Status, "iterations", record.CurrentIteration, "cost_usd", record.Usage.CostUSD)
	fmt.Printf("task %s: %s (%d iterations, $%.4f)\n", record.ShortID(), record.Status, record.CurrentIteration, record.Usage.CostUSD)
	if record.FinalOutput != "" {
		fmt.Printf("\n%s\n", record.FinalOutput)
	}
}

func parallelCommand(args []string) {
	fs := flag.NewFlagSet("parallel", flag.ExitOnError)
	var (
		configFile = fs.String("config", "", "Path to iteration config JSON file shared by every task")
		batchFile  = fs.String("batch", "", "Path to a JSON array of task definitions (required)")
		ledgerDir  = fs.String("ledger", ".orchestrator", "Path to ledger state directory")
		maxWorkers = fs.Int("max-workers", 0, "Worker cap; 0 auto-detects")
		budgetUSD  = fs.Float64("budget", 0, "Shared total cost budget in USD; 0 for unlimited")
		verbose    = fs.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	fs.Parse(args)

	if *batchFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: orchestrator parallel -batch <file.json> [-config <file>]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	defs, err := parallel.LoadBatch(*batchFile)
	if err != nil {
		log.Fatalf("load batch: %v", err)
	}

	baseCfg := iteration.DefaultConfig()
	if *configFile != "" {
		loaded, err := iteration.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		baseCfg = *loaded
	}

	ledg, err := ledger.New(*ledgerDir)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}

	logger := newLogger(*verbose)
	observer := observerFor(logger)

	execCfg := parallel.DefaultConfig()
	if *maxWorkers > 0 {
		execCfg.MaxWorkers = *maxWorkers
	}
	if *budgetUSD > 0 {
		execCfg.TotalBudgetUSD = budgetUSD
	}

	runner := workflow.NewStepRunner(baseCfg, ledg)
	executor := parallel.New(execCfg, runner, parallel.WithObserver(observer))

	ctx, stop := interruptContext()
	defer stop()

	result, err := executor.Run(ctx, defs)
	fmt.Printf("%d succeeded, %d failed, total cost $%.4f\n", result.Succeeded, result.Failed, result.TotalCostUSD)
	if err != nil {
		log.Fatalf("parallel: %v", err)
	}
}

func workflowCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: orchestrator workflow <validate|run|resume> -file <workflow.yaml>")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("workflow "+sub, flag.ExitOnError)
	var (
		file       = fs.String("file", "", "Path to workflow YAML file (required)")
		ledgerDir  = fs.String("ledger", ".orchestrator", "Path to ledger state directory")
		workflowID = fs.String("workflow-id", "", "Workflow id to resume (required for resume)")
		verbose    = fs.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	fs.Parse(rest)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(1)
	}

	def, err := workflow.Load(*file)
	if err != nil {
		log.Fatalf("load workflow: %v", err)
	}

	if sub == "validate" {
		warnings, err := def.Validate()
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w)
		}
		if err != nil {
			log.Fatalf("invalid: %v", err)
		}
		fmt.Println("workflow is valid")
		return
	}

	ledg, err := ledger.New(*ledgerDir)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}

	logger := newLogger(*verbose)
	observer := observerFor(logger)

	baseCfg := iteration.DefaultConfig()
	runner := workflow.NewStepRunner(baseCfg, ledg)
	sched := workflow.NewScheduler(ledg, runner, workflow.WithObserver(observer))

	ctx, stop := interruptContext()
	defer stop()

	var state *ledger.WorkflowState
	switch sub {
	case "run":
		state, err = sched.Run(ctx, def)
	case "resume":
		if *workflowID == "" {
			fmt.Fprintln(os.Stderr, "-workflow-id is required for resume")
			os.Exit(1)
		}
		state, err = sched.Resume(ctx, *workflowID, def)
	default:
		fmt.Fprintf(os.Stderr, "orchestrator workflow: unknown subcommand %q\n", sub)
		os.Exit(1)
	}

	if state != nil {
		fmt.Printf("workflow %s: %s (total cost $%.4f)\n", state.WorkflowID, state.Status, state.TotalCostUSD)
	}
	if err != nil {
		log.Fatalf("workflow %s: %v", sub, err)
	}
}

func resumeCommand(args []string) {
	fs := flag.NewFlagSet("resume", flag.ExitOnError)
	ledgerDir := fs.String("ledger", ".orchestrator", "Path to ledger state directory")
	fs.Parse(args)

	ledg, err := ledger.New(*ledgerDir)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}

	tasks, err := ledg.ListResumable()
	if err != nil {
		log.Fatalf("list resumable: %v", err)
	}
	if len(tasks) == 0 {
		fmt.Println("no resumable tasks")
		return
	}
	for _, t := range tasks {
		fmt.Printf("%s  %-22s  iter=%d  cost=$%.4f\n", t.ShortID(), t.Status, t.CurrentIteration, t.Usage.CostUSD)
	}

	states, err := ledg.ListWorkflowStates()
	if err != nil {
		log.Fatalf("list workflow states: %v", err)
	}
	for _, s := range states {
		if s.CanResume() {
			fmt.Printf("workflow %s  %-22s  group=%d  cost=$%.4f\n", s.WorkflowID, s.Status, s.CurrentGroup, s.TotalCostUSD)
		}
	}
}

func observerFor(logger *slog.Logger) observability.Observer {
	return observability.NewSlogObserver(logger)
}
