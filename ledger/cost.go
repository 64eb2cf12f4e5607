package ledger

import "time"

// CostEntry is an append-only record written once per task finalisation.
// Entries are never deleted except by ResetCosts.
type CostEntry struct {
	TaskID        string    `json:"task_id"`
	Model         string    `json:"model"`
	Usage         Usage     `json:"usage"`
	Status        string    `json:"status"`
	PromptSummary string    `json:"prompt_summary"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewCostEntry builds a Cost Entry from a finalised Task Record.
func NewCostEntry(t *TaskRecord) CostEntry {
	return CostEntry{
		TaskID:        t.TaskID,
		Model:         t.Model,
		Usage:         t.Usage,
		Status:        string(t.Status),
		PromptSummary: truncateRunes(t.Prompt, 80),
		Timestamp:     time.Now().UTC(),
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
