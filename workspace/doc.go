// Package workspace provisions and tears down per-task working
// directories for the Iteration Engine and Parallel Executor.
//
// Three isolation modes are supported: None (the engine runs directly in
// the caller's working directory), Plain (a fresh empty directory per
// task), and Worktree (a git worktree on its own branch, for tasks that
// mutate a shared repository concurrently without clobbering each other).
package workspace
