// Package hooks runs user-supplied external commands at lifecycle points
// of the Iteration Engine — pre_run, post_run, on_error, on_iteration,
// on_complete — each with its own timeout and failure policy.
package hooks
