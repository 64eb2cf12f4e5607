package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/tailored-agentic-units/orchestrator/ledger"
)

// Capability selects how much autonomy the agent is granted for one
// invocation (: "read-only, yolo skip-prompts, or an explicit
// tool list").
type Capability int

const (
	CapabilityReadOnly Capability = iota
	CapabilityYolo
	CapabilityToolList
)

// Config is the Agent Adapter's fixed configuration: which binary to spawn
// and how to build its argument list. Matches the ambient Config/Default
// pattern used throughout this repository.
type Config struct {
	Command       string     `json:"command"`
	Model         string     `json:"model"`
	Capability    Capability `json:"capability"`
	AllowedTools  []string   `json:"allowed_tools,omitempty"`
	ChannelDepth  int        `json:"channel_depth"`
	SessionID     string     `json:"session_id,omitempty"`
	SystemPrompt  string     `json:"system_prompt,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Command:      "claude",
		Capability:   CapabilityReadOnly,
		ChannelDepth: 64,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Command != "" {
		c.Command = source.Command
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.Capability != 0 {
		c.Capability = source.Capability
	}
	if len(source.AllowedTools) > 0 {
		c.AllowedTools = source.AllowedTools
	}
	if source.ChannelDepth > 0 {
		c.ChannelDepth = source.ChannelDepth
	}
	if source.SessionID != "" {
		c.SessionID = source.SessionID
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
}

// buildArgs constructs the child process argument list from config and
// prompt. Flag spellings are a deployment detail; this shape
// matches the streaming-JSON agent CLIs referenced across the example
// pack.
func (c *Config) buildArgs(prompt string) []string {
	args := []string{"--output-format=stream-json", "--verbose"}

	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	if c.SessionID != "" {
		args = append(args, "--resume", c.SessionID)
	}
	if c.SystemPrompt != "" {
		args = append(args, "--system-prompt", c.SystemPrompt)
	}

	switch c.Capability {
	case CapabilityYolo:
		args = append(args, "--dangerously-skip-permissions")
	case CapabilityToolList:
		for _, tool := range c.AllowedTools {
			args = append(args, "--allowedTools", tool)
		}
	}

	return append(args, "-p", prompt)
}

// Usage is the adapter's aggregated accounting for one child invocation,
// shaped to merge directly into a Task Record.
type Usage = ledger.Usage

// Outcome is delivered exactly once on the channel returned by Execute's
// second return value, after the event channel has been drained and the
// child has exited.
type Outcome struct {
	Usage     Usage
	SessionID string
	Err       error
}

// Adapter spawns one agent child process per Execute call and parses its
// NDJSON stdout into Events.
type Adapter struct {
	cfg     Config
	starter ProcessStarter
}

// New creates an Adapter. starter defaults to ExecProcessStarter when nil.
func New(cfg Config, starter ProcessStarter) *Adapter {
	if starter == nil {
		starter = ExecProcessStarter
	}
	return &Adapter{cfg: cfg, starter: starter}
}

// Execute spawns the agent with prompt and streams its parsed events back
// on the returned channel (capacity = cfg.ChannelDepth, minimum 64). The
// Outcome channel receives exactly one value once the child has exited
// and stdout has closed; it is always sent to, even on spawn failure (in
// which case Err wraps the starter's error and the event channel is closed
// immediately empty). Stdout lines that are not valid JSON are logged and
// dropped; they never reach the event channel.
//
// Dropping the event channel's receiver does not kill the child —
// cancellation by kill is the caller's (Iteration Engine's)
// responsibility via ctx.
func (a *Adapter) Execute(ctx context.Context, prompt string) (<-chan Event, <-chan Outcome) {
	depth := a.cfg.ChannelDepth
	if depth < 64 {
		depth = 64
	}
	events := make(chan Event, depth)
	outcome := make(chan Outcome, 1)

	proc, stdout, err := a.starter(ctx, a.cfg.Command, a.cfg.buildArgs(prompt))
	if err != nil {
		close(events)
		outcome <- Outcome{Err: fmt.Errorf("adapter: spawn %s: %w", a.cfg.Command, err)}
		close(outcome)
		return events, outcome
	}

	go a.run(proc, stdout, events, outcome)
	return events, outcome
}

func (a *Adapter) run(proc Process, stdout io.Reader, events chan<- Event, outcome chan<- Outcome) {
	defer close(events)
	defer close(outcome)

	var usage Usage
	var sessionID string

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			slog.Warn("adapter: skipping unparseable agent output line", "line", string(line))
			continue
		}

		ev := ParseEvent(line)
		switch ev.Kind {
		case KindSystem:
			if ev.System.SessionID != "" {
				sessionID = ev.System.SessionID
			}
		case KindResult:
			if ev.Result.Usage != nil {
				u := ev.Result.Usage
				usage.InputTokens += u.InputTokens
				usage.OutputTokens += u.OutputTokens
				usage.CacheReadTokens += u.CacheReadTokens
				usage.CacheCreationTokens += u.CacheCreationTokens
			}
			if ev.Result.TotalCostUSD != nil {
				usage.CostUSD = *ev.Result.TotalCostUSD
			}
			if ev.Result.DurationMS != nil {
				usage.DurationMS = *ev.Result.DurationMS
			}
		}

		events <- ev
	}

	waitErr := proc.Wait()
	// A non-zero child exit is not itself a fatal adapter error: the event
	// stream ends normally and usage still resolves. The caller decides
	// policy from completion detection.
	_ = waitErr

	outcome <- Outcome{Usage: usage, SessionID: sessionID}
}
