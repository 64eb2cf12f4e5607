package hooks

import "errors"

// ErrTimeout is returned in Result.Err when a hook exceeds its timeout.
// The child is killed.
var ErrTimeout = errors.New("hooks: timed out")
