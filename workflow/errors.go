package workflow

import "errors"

var (
	// ErrDuplicateStep is returned by Validate when two steps share a name.
	ErrDuplicateStep = errors.New("workflow: duplicate step name")
	// ErrUnknownDependency is returned when depends_on names a step that
	// does not exist.
	ErrUnknownDependency = errors.New("workflow: depends_on references an unknown step")
	// ErrCycle is returned when the step graph is not acyclic.
	ErrCycle = errors.New("workflow: dependency graph has a cycle")
	// ErrGroupOrdering is returned when a step's parallel_group does not
	// strictly follow every dependency's parallel_group.
	ErrGroupOrdering = errors.New("workflow: parallel_group does not respect dependency order")
	// ErrNotResumable is returned by Resume when the loaded state is not
	// Failed or Cancelled.
	ErrNotResumable = errors.New("workflow: state is not resumable")
	// ErrNoSteps is returned by Validate for a definition with no steps.
	ErrNoSteps = errors.New("workflow: definition has no steps")
)
