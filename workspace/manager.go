package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"
)

// Mode selects how a task's working directory is provisioned.
type Mode int

const (
	// ModeNone runs the task directly in the caller's working directory.
	ModeNone Mode = iota
	// ModePlain provisions a fresh empty directory per task.
	ModePlain
	// ModeWorktree provisions a git worktree on its own branch.
	ModeWorktree
)

// Info describes one provisioned workspace.
type Info struct {
	TaskID     string
	Path       string
	Branch     string
	IsWorktree bool
}

// GitRunner executes a git subcommand in dir, returning combined output.
// The default implementation shells out to the system git binary; tests
// inject a fake.
type GitRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

func execGitRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

var branchNameDisallowed = regexp.MustCompile(`[^a-zA-Z0-9/_.-]+`)

func sanitizeBranchName(name string) string {
	sanitized := branchNameDisallowed.ReplaceAllString(name, "-")
	if sanitized == "" {
		sanitized = "task"
	}
	return sanitized
}

// Manager provisions and tears down task workspaces under a base
// directory, tracking one Info per active task id.
type Manager struct {
	mu           sync.RWMutex
	baseDir      string
	branchPrefix string
	git          GitRunner
	workspaces   map[string]Info
}

// New creates a Manager rooted at baseDir. branchPrefix is prepended to
// every worktree's branch name (e.g. "task/").
func New(baseDir, branchPrefix string, opts ...Option) *Manager {
	m := &Manager{
		baseDir:      baseDir,
		branchPrefix: branchPrefix,
		git:          execGitRunner,
		workspaces:   map[string]Info{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option configures a Manager after construction.
type Option func(*Manager)

// WithGitRunner overrides the default system-git runner, for testing.
func WithGitRunner(r GitRunner) Option {
	return func(m *Manager) { m.git = r }
}

// Create provisions a workspace for taskID under mode. ModeNone registers
// nothing and returns an Info with only TaskID set.
func (m *Manager) Create(ctx context.Context, taskID string, mode Mode) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.workspaces[taskID]; exists {
		return Info{}, ErrWorkspaceExists
	}

	switch mode {
	case ModeNone:
		return Info{TaskID: taskID}, nil

	case ModePlain:
		dir := filepath.Join(m.baseDir, "workspaces", taskID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Info{}, fmt.Errorf("workspace: create plain dir: %w", err)
		}
		info := Info{TaskID: taskID, Path: dir}
		m.workspaces[taskID] = info
		return info, nil

	case ModeWorktree:
		return m.createWorktree(ctx, taskID)

	default:
		return Info{}, fmt.Errorf("workspace: unknown mode %d", mode)
	}
}

func (m *Manager) createWorktree(ctx context.Context, taskID string) (Info, error) {
	worktreesDir := filepath.Join(m.baseDir, "worktrees")
	if err := os.MkdirAll(worktreesDir, 0o755); err != nil {
		return Info{}, fmt.Errorf("workspace: create worktrees dir: %w", err)
	}

	path := filepath.Join(worktreesDir, taskID)
	branch := m.branchPrefix + sanitizeBranchName(taskID)

	if out, err := m.git(ctx, m.baseDir, "worktree", "add", "-b", branch, path); err != nil {
		return Info{}, fmt.Errorf("workspace: git worktree add: %w: %s", err, out)
	}

	info := Info{TaskID: taskID, Path: path, Branch: branch, IsWorktree: true}
	m.workspaces[taskID] = info
	return info, nil
}

// Get returns the registered workspace for taskID, if any.
func (m *Manager) Get(taskID string) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.workspaces[taskID]
	return info, ok
}

// List returns every currently registered workspace.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.workspaces))
	for _, info := range m.workspaces {
		out = append(out, info)
	}
	return out
}

// Cleanup tears down taskID's workspace. It is idempotent: calling it for
// an unknown or already-cleaned task id is a no-op, not an error.
func (m *Manager) Cleanup(ctx context.Context, taskID string, deleteBranch bool) error {
	m.mu.Lock()
	info, ok := m.workspaces[taskID]
	if ok {
		delete(m.workspaces, taskID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	if info.IsWorktree {
		args := []string{"worktree", "remove", info.Path, "--force"}
		if _, err := m.git(ctx, m.baseDir, args...); err != nil {
			return fmt.Errorf("workspace: git worktree remove: %w", err)
		}
		if deleteBranch {
			_, _ = m.git(ctx, m.baseDir, "branch", "-D", info.Branch)
		}
		return nil
	}

	if info.Path == "" {
		return nil
	}
	if err := os.RemoveAll(info.Path); err != nil {
		return fmt.Errorf("workspace: remove %s: %w", info.Path, err)
	}
	return nil
}

// CleanupAll tears down every currently registered workspace.
func (m *Manager) CleanupAll(ctx context.Context, deleteBranches bool) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.workspaces))
	for id := range m.workspaces {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, id := range ids {
		if err := m.Cleanup(ctx, id, deleteBranches); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
