package notify

import "time"

// Kind is the lifecycle event kind carried by an Envelope.
type Kind string

const (
	Started        Kind = "started"
	Completed      Kind = "completed"
	Error          Kind = "error"
	BudgetExceeded Kind = "budget_exceeded"
	MaxIterations  Kind = "max_iterations"
)

// Envelope is the payload delivered to every matching sink. Wire-format of
// any one sink's delivery is that sink's concern, not this package's.
type Envelope struct {
	Kind          Kind           `json:"kind"`
	TaskID        string         `json:"task_id"`
	PromptSummary string         `json:"prompt_summary,omitempty"`
	Model         string         `json:"model,omitempty"`
	Iterations    int            `json:"iterations"`
	CostUSD       float64        `json:"cost_usd"`
	DurationMS    int64          `json:"duration_ms"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Builder constructs an Envelope fluently, mirroring the teacher's message
// builder idiom.
type Builder struct {
	env Envelope
}

// NewEnvelope starts building an Envelope of the given kind for taskID.
func NewEnvelope(kind Kind, taskID string) *Builder {
	return &Builder{env: Envelope{
		Kind:      kind,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{},
	}}
}

func (b *Builder) PromptSummary(s string) *Builder { b.env.PromptSummary = s; return b }
func (b *Builder) Model(m string) *Builder          { b.env.Model = m; return b }
func (b *Builder) Iterations(n int) *Builder        { b.env.Iterations = n; return b }
func (b *Builder) CostUSD(c float64) *Builder       { b.env.CostUSD = c; return b }
func (b *Builder) DurationMS(ms int64) *Builder     { b.env.DurationMS = ms; return b }
func (b *Builder) Err(e string) *Builder            { b.env.Error = e; return b }
func (b *Builder) Meta(key string, value any) *Builder {
	b.env.Metadata[key] = value
	return b
}

// Build finalises the Envelope.
func (b *Builder) Build() Envelope { return b.env }
