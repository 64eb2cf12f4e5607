package parallel

import "errors"

// ErrBudgetExceeded is the per-task error recorded when a task is denied
// admission because the shared total budget was already spent.
var ErrBudgetExceeded = errors.New("parallel: total budget exceeded")

// ErrNotAdmitted is the per-task error recorded when fail-fast cancellation
// tripped before this task reached the front of the admission queue.
var ErrNotAdmitted = errors.New("parallel: cancelled before admission")
