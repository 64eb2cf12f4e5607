package adapter

import "encoding/json"

// EventKind discriminates the variants of Event, mirroring the agent's
// wire-level `type` field.
type EventKind string

const (
	KindSystem     EventKind = "system"
	KindAssistant  EventKind = "assistant"
	KindToolUse    EventKind = "tool_use"
	KindToolResult EventKind = "tool_result"
	KindResult     EventKind = "result"
	KindUnknown    EventKind = "unknown"
)

// UsageStats is the token accounting carried by a Result event.
type UsageStats struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadTokens     int64 `json:"cache_read_input_tokens"`
}

// System carries a `system` event's fields.
type System struct {
	Subtype   string   `json:"subtype"`
	SessionID string   `json:"session_id,omitempty"`
	Tools     []string `json:"tools,omitempty"`
}

// Assistant carries an `assistant` event's fields.
type Assistant struct {
	Message string `json:"message,omitempty"`
}

// ToolUse carries a `tool_use` event's fields.
type ToolUse struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
}

// ToolResult carries a `tool_result` event's fields.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	Output   string `json:"output,omitempty"`
	IsError  bool   `json:"is_error"`
}

// Result carries a `result` event's fields — the child's final accounting
// for the iteration.
type Result struct {
	ResultText    string      `json:"result,omitempty"`
	Subtype       string      `json:"subtype,omitempty"`
	IsError       bool        `json:"is_error"`
	DurationMS    *int64      `json:"duration_ms,omitempty"`
	DurationAPIMS *int64      `json:"duration_api_ms,omitempty"`
	TotalCostUSD  *float64    `json:"total_cost_usd,omitempty"`
	Usage         *UsageStats `json:"usage,omitempty"`
}

// Event is one parsed line of the agent's NDJSON stdout.
// Exactly one of the typed fields is populated, selected by Kind; any
// `type` other than the five recognised ones becomes KindUnknown with Raw
// set to the original line.
type Event struct {
	Kind       EventKind
	System     *System
	Assistant  *Assistant
	ToolUse    *ToolUse
	ToolResult *ToolResult
	Result     *Result
	Raw        json.RawMessage
}

type wireEnvelope struct {
	Type string `json:"type"`
}

// ParseEvent decodes one line of agent stdout into an Event. Unparseable
// or unrecognised lines never error — they become KindUnknown carrying the
// raw bytes. The Adapter's reader loop logs and drops lines that are not
// valid JSON before calling ParseEvent, so only well-formed lines with an
// unrecognised `type` reach the caller as KindUnknown.
func ParseEvent(line []byte) Event {
	var env wireEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Event{Kind: KindUnknown, Raw: append(json.RawMessage(nil), line...)}
	}

	switch EventKind(env.Type) {
	case KindSystem:
		var s System
		if json.Unmarshal(line, &s) == nil {
			return Event{Kind: KindSystem, System: &s}
		}
	case KindAssistant:
		var a Assistant
		if json.Unmarshal(line, &a) == nil {
			return Event{Kind: KindAssistant, Assistant: &a}
		}
	case KindToolUse:
		var tu ToolUse
		if json.Unmarshal(line, &tu) == nil {
			return Event{Kind: KindToolUse, ToolUse: &tu}
		}
	case KindToolResult:
		var tr ToolResult
		if json.Unmarshal(line, &tr) == nil {
			return Event{Kind: KindToolResult, ToolResult: &tr}
		}
	case KindResult:
		var r Result
		if json.Unmarshal(line, &r) == nil {
			return Event{Kind: KindResult, Result: &r}
		}
	}

	return Event{Kind: KindUnknown, Raw: append(json.RawMessage(nil), line...)}
}
