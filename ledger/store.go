package ledger

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ledger is the durable store for Task Records, Workflow States, and Cost
// Entries within one project directory. The directory layout is:
//
//	<root>/state.json                        current Task Record
//	<root>/history/<task-id>.json             archived Task Records
//	<root>/cost/history.json                  append-only cost ledger
//	<root>/workflows/state/<workflow-id>.json workflow states
type Ledger struct {
	root string
}

// New creates a Ledger rooted at dir, creating the directory layout that
// does not yet exist. dir is conventionally a hidden subdirectory of the
// caller's project (e.g. ".orchestrator").
func New(dir string) (*Ledger, error) {
	l := &Ledger{root: dir}
	for _, sub := range []string{"history", "cost", filepath.Join("workflows", "state")} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrPersist, sub, err)
		}
	}
	return l, nil
}

func (l *Ledger) path(elem ...string) string {
	return filepath.Join(append([]string{l.root}, elem...)...)
}

// writeJSON atomically writes v to path via create-temp-then-rename, so an
// interrupted write never leaves a partially visible document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersist, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrPersist, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write: %v", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close: %v", ErrPersist, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", ErrPersist, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", ErrLoad, err)
	}
	return nil
}

// --- Task Record ---

// SaveCurrent atomically writes task as the sole "current" slot.
func (l *Ledger) SaveCurrent(task *TaskRecord) error {
	return writeJSON(l.path("state.json"), task)
}

// LoadCurrent reads back the current slot. Returns ErrNotFound if empty.
func (l *Ledger) LoadCurrent() (*TaskRecord, error) {
	var t TaskRecord
	if err := readJSON(l.path("state.json"), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ClearCurrent removes the current slot, if present.
func (l *Ledger) ClearCurrent() error {
	if err := os.Remove(l.path("state.json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: clear current: %v", ErrPersist, err)
	}
	return nil
}

// Archive writes task into the append-only history keyed by task id and
// clears the current slot.
func (l *Ledger) Archive(task *TaskRecord) error {
	if err := writeJSON(l.path("history", task.TaskID+".json"), task); err != nil {
		return err
	}
	return l.ClearCurrent()
}

// LoadHistory looks up an archived task by exact id, else by unique
// prefix. If multiple archived ids share the prefix, the first in
// directory order is returned — documented non-determinism.
func (l *Ledger) LoadHistory(idOrPrefix string) (*TaskRecord, error) {
	exact := l.path("history", idOrPrefix+".json")
	var t TaskRecord
	if err := readJSON(exact, &t); err == nil {
		return &t, nil
	} else if err != ErrNotFound {
		return nil, err
	}

	entries, err := os.ReadDir(l.path("history"))
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %v", ErrLoad, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		id := strings.TrimSuffix(name, ".json")
		if strings.HasPrefix(id, idOrPrefix) {
			if err := readJSON(l.path("history", name), &t); err != nil {
				return nil, err
			}
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

// ListResumable returns the union of the current slot (if resumable) and
// every historical record whose status is in the resumable set, ordered
// by UpdatedAt descending.
func (l *Ledger) ListResumable() ([]*TaskRecord, error) {
	var out []*TaskRecord

	if cur, err := l.LoadCurrent(); err == nil {
		if cur.CanResume() {
			out = append(out, cur)
		}
	} else if err != ErrNotFound {
		return nil, err
	}

	history, err := l.allHistory()
	if err != nil {
		return nil, err
	}
	for _, t := range history {
		if t.CanResume() {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// ListHistory returns every archived Task Record, most-recently-updated
// first, truncated to limit (0 means unlimited).
func (l *Ledger) ListHistory(limit int) ([]*TaskRecord, error) {
	history, err := l.allHistory()
	if err != nil {
		return nil, err
	}
	sort.Slice(history, func(i, j int) bool { return history[i].UpdatedAt.After(history[j].UpdatedAt) })
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (l *Ledger) allHistory() ([]*TaskRecord, error) {
	var out []*TaskRecord
	dir := l.path("history")
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		var t TaskRecord
		if err := readJSON(path, &t); err != nil {
			return err
		}
		out = append(out, &t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk history: %v", ErrLoad, err)
	}
	return out, nil
}

// --- Cost Entry ---

// RecordCost appends entry to the cost ledger.
func (l *Ledger) RecordCost(entry CostEntry) error {
	entries, err := l.loadCostHistory()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return writeJSON(l.path("cost", "history.json"), entries)
}

func (l *Ledger) loadCostHistory() ([]CostEntry, error) {
	var entries []CostEntry
	err := readJSON(l.path("cost", "history.json"), &entries)
	if err == ErrNotFound {
		return []CostEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByTask returns every cost entry recorded for task id.
func (l *Ledger) ListByTask(taskID string) ([]CostEntry, error) {
	entries, err := l.loadCostHistory()
	if err != nil {
		return nil, err
	}
	out := make([]CostEntry, 0)
	for _, e := range entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListByDate returns every cost entry whose timestamp falls on the given
// UTC calendar date (format "2006-01-02").
func (l *Ledger) ListByDate(date string) ([]CostEntry, error) {
	entries, err := l.loadCostHistory()
	if err != nil {
		return nil, err
	}
	out := make([]CostEntry, 0)
	for _, e := range entries {
		if e.Timestamp.Format("2006-01-02") == date {
			out = append(out, e)
		}
	}
	return out, nil
}

// Total returns the sum of all recorded cost entries' USD amounts.
func (l *Ledger) Total() (float64, error) {
	entries, err := l.loadCostHistory()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, e := range entries {
		total += e.Usage.CostUSD
	}
	return total, nil
}

// ResetCosts clears the cost ledger. This is the "explicit reset
// operation" the Cost Entry invariant refers to.
func (l *Ledger) ResetCosts() error {
	return writeJSON(l.path("cost", "history.json"), []CostEntry{})
}

// --- Workflow State ---

// SaveWorkflowState atomically writes a workflow state keyed by its id.
func (l *Ledger) SaveWorkflowState(w *WorkflowState) error {
	return writeJSON(l.path("workflows", "state", w.WorkflowID+".json"), w)
}

// LoadWorkflowState reads back a workflow state by id.
func (l *Ledger) LoadWorkflowState(id string) (*WorkflowState, error) {
	var w WorkflowState
	if err := readJSON(l.path("workflows", "state", id+".json"), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkflowStates returns every persisted workflow state, most recently
// updated first.
func (l *Ledger) ListWorkflowStates() ([]*WorkflowState, error) {
	dir := l.path("workflows", "state")
	var out []*WorkflowState
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		var w WorkflowState
		if err := readJSON(path, &w); err != nil {
			return err
		}
		out = append(out, &w)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk workflow states: %v", ErrLoad, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// WorkspacesRoot returns the directory plain workspaces are created under
// ("workspaces/<task-id>/").
func (l *Ledger) WorkspacesRoot() string {
	return l.path("workspaces")
}

// Root returns the ledger's project directory.
func (l *Ledger) Root() string {
	return l.root
}
