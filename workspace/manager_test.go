package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/orchestrator/workspace"
)

func TestCreatePlainWorkspace(t *testing.T) {
	base := t.TempDir()
	m := workspace.New(base, "task/")

	info, err := m.Create(context.Background(), "task-1", workspace.ModePlain)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(info.Path); err != nil {
		t.Fatalf("workspace dir not created: %v", err)
	}
	if info.IsWorktree {
		t.Errorf("plain workspace reported IsWorktree")
	}
}

func TestCreateModeNoneRegistersNothing(t *testing.T) {
	m := workspace.New(t.TempDir(), "task/")
	info, err := m.Create(context.Background(), "task-1", workspace.ModeNone)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.Path != "" {
		t.Errorf("ModeNone should not provision a path, got %q", info.Path)
	}
	if _, ok := m.Get("task-1"); ok {
		t.Errorf("ModeNone should not register a workspace")
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	base := t.TempDir()
	m := workspace.New(base, "task/")
	if _, err := m.Create(context.Background(), "task-1", workspace.ModePlain); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := m.Create(context.Background(), "task-1", workspace.ModePlain); err != workspace.ErrWorkspaceExists {
		t.Errorf("second Create err = %v, want ErrWorkspaceExists", err)
	}
}

func TestCleanupRemovesPlainWorkspace(t *testing.T) {
	base := t.TempDir()
	m := workspace.New(base, "task/")
	info, _ := m.Create(context.Background(), "task-1", workspace.ModePlain)

	if err := m.Cleanup(context.Background(), "task-1", false); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(info.Path); !os.IsNotExist(err) {
		t.Errorf("expected workspace dir to be removed")
	}
	if _, ok := m.Get("task-1"); ok {
		t.Errorf("workspace still registered after cleanup")
	}
}

func TestCleanupUnknownTaskIsNoOp(t *testing.T) {
	m := workspace.New(t.TempDir(), "task/")
	if err := m.Cleanup(context.Background(), "ghost", false); err != nil {
		t.Errorf("Cleanup on unknown task should be a no-op, got %v", err)
	}
}

func TestCreateWorktreeInvokesGit(t *testing.T) {
	base := t.TempDir()
	var calls [][]string
	fakeGit := func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		calls = append(calls, args)
		if args[0] == "worktree" && args[1] == "add" {
			return nil, os.MkdirAll(args[len(args)-1], 0o755)
		}
		return nil, nil
	}

	m := workspace.New(base, "task/", workspace.WithGitRunner(fakeGit))
	info, err := m.Create(context.Background(), "task-9", workspace.ModeWorktree)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !info.IsWorktree || info.Branch != "task/task-9" {
		t.Errorf("info = %+v, want worktree on branch task/task-9", info)
	}
	wantPath := filepath.Join(base, "worktrees", "task-9")
	if info.Path != wantPath {
		t.Errorf("path = %q, want %q", info.Path, wantPath)
	}

	if err := m.Cleanup(context.Background(), "task-9", true); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	var sawRemove, sawBranchDelete bool
	for _, c := range calls {
		if len(c) >= 2 && c[0] == "worktree" && c[1] == "remove" {
			sawRemove = true
		}
		if len(c) >= 2 && c[0] == "branch" && c[1] == "-D" {
			sawBranchDelete = true
		}
	}
	if !sawRemove || !sawBranchDelete {
		t.Errorf("expected both worktree remove and branch delete, calls=%v", calls)
	}
}
