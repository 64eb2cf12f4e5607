package adapter_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/orchestrator/adapter"
)

type fakeProcess struct {
	waitErr error
}

func (p *fakeProcess) Wait() error { return p.waitErr }

func fakeStarter(stdout string, waitErr error) adapter.ProcessStarter {
	return func(ctx context.Context, command string, args []string) (adapter.Process, io.Reader, error) {
		return &fakeProcess{waitErr: waitErr}, strings.NewReader(stdout), nil
	}
}

func failingStarter(err error) adapter.ProcessStarter {
	return func(ctx context.Context, command string, args []string) (adapter.Process, io.Reader, error) {
		return nil, nil, err
	}
}

func drain(events <-chan adapter.Event) []adapter.Event {
	var out []adapter.Event
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestExecuteParsesEventsAndAggregatesUsage(t *testing.T) {
	stdout := strings.Join([]string{
		`{"type":"system","subtype":"init","session_id":"sess-1"}`,
		`{"type":"assistant","message":"hi <promise>COMPLETE</promise>"}`,
		`{"type":"tool_use","tool_name":"read_file"}`,
		`{"type":"tool_result","tool_name":"read_file","output":"ok","is_error":false}`,
		`{"type":"result","is_error":false,"total_cost_usd":0.01,"duration_ms":120,"usage":{"input_tokens":10,"output_tokens":2}}`,
	}, "\n") + "\n"

	a := adapter.New(adapter.DefaultConfig(), fakeStarter(stdout, nil))
	events, outcomeCh := a.Execute(context.Background(), "write hi")

	got := drain(events)
	if len(got) != 5 {
		t.Fatalf("got %d events, want 5", len(got))
	}
	if got[0].Kind != adapter.KindSystem || got[0].System.SessionID != "sess-1" {
		t.Errorf("event 0 = %+v, want system/sess-1", got[0])
	}
	if got[1].Kind != adapter.KindAssistant || !strings.Contains(got[1].Assistant.Message, "COMPLETE") {
		t.Errorf("event 1 = %+v, want assistant with COMPLETE marker", got[1])
	}

	outcome := <-outcomeCh
	if outcome.Err != nil {
		t.Fatalf("unexpected outcome error: %v", outcome.Err)
	}
	if outcome.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", outcome.SessionID)
	}
	if outcome.Usage.InputTokens != 10 || outcome.Usage.OutputTokens != 2 {
		t.Errorf("usage = %+v, want 10/2 tokens", outcome.Usage)
	}
	if outcome.Usage.CostUSD != 0.01 {
		t.Errorf("CostUSD = %v, want 0.01", outcome.Usage.CostUSD)
	}
}

func TestExecuteUnparseableLineIsSkippedNotFatal(t *testing.T) {
	stdout := "not json at all\n" +
		`{"type":"assistant","message":"ok"}` + "\n"

	a := adapter.New(adapter.DefaultConfig(), fakeStarter(stdout, nil))
	events, outcomeCh := a.Execute(context.Background(), "prompt")

	got := drain(events)
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1 (unparseable line dropped, assistant kept)", len(got))
	}
	if got[0].Kind == adapter.KindUnknown {
		t.Errorf("event 0 kind = %s, want the unparseable line skipped", got[0].Kind)
	}
	if got[0].Kind != adapter.KindAssistant {
		t.Errorf("event 0 kind = %s, want assistant", got[0].Kind)
	}

	outcome := <-outcomeCh
	if outcome.Err != nil {
		t.Errorf("unparseable line must not be fatal, got err %v", outcome.Err)
	}
}

func TestExecuteNonZeroExitIsNotFatal(t *testing.T) {
	stdout := `{"type":"assistant","message":"partial"}` + "\n"
	a := adapter.New(adapter.DefaultConfig(), fakeStarter(stdout, errors.New("exit status 1")))

	events, outcomeCh := a.Execute(context.Background(), "prompt")
	drain(events)

	outcome := <-outcomeCh
	if outcome.Err != nil {
		t.Errorf("non-zero child exit must not surface as adapter error, got %v", outcome.Err)
	}
}

func TestExecuteSpawnFailure(t *testing.T) {
	spawnErr := errors.New("binary not found")
	a := adapter.New(adapter.DefaultConfig(), failingStarter(spawnErr))

	events, outcomeCh := a.Execute(context.Background(), "prompt")

	if got := drain(events); len(got) != 0 {
		t.Errorf("expected no events on spawn failure, got %d", len(got))
	}

	outcome := <-outcomeCh
	if outcome.Err == nil || !errors.Is(outcome.Err, spawnErr) {
		t.Errorf("expected wrapped spawn error, got %v", outcome.Err)
	}
}
