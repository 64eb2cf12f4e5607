package iteration

import "errors"

// ErrPreRunAborted is returned when the pre_run hook fails under
// PolicyAbort, preventing the task from ever invoking the agent.
var ErrPreRunAborted = errors.New("iteration: pre_run hook aborted task")

// ErrEmptyPrompt is returned by Run when called with an empty prompt.
var ErrEmptyPrompt = errors.New("iteration: prompt must not be empty")
