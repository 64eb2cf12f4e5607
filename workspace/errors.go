package workspace

import "errors"

// ErrWorkspaceExists is returned by Create when a workspace already exists
// for the given task id.
var ErrWorkspaceExists = errors.New("workspace: already exists for this task")

// ErrUnknownTask identifies a task id with no registered workspace. Manager
// itself does not return it: Get reports absence through its bool result
// and Cleanup treats an unknown id as a no-op.
var ErrUnknownTask = errors.New("workspace: unknown task id")
