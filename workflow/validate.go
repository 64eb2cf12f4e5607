package workflow

import (
	"fmt"
	"sort"
)

// Validate checks the definition for structural errors:
// unique step names, every depends_on referring to an existing step, an
// acyclic graph, and parallel_group respecting dependency order. Warnings
// (e.g. a step with neither prompt nor spec) are returned separately from
// the error.
func (d *Definition) Validate() (warnings []string, err error) {
	if len(d.Steps) == 0 {
		return nil, ErrNoSteps
	}

	byName := make(map[string]*Step, len(d.Steps))
	for i := range d.Steps {
		s := &d.Steps[i]
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, s.Name)
		}
		byName[s.Name] = s

		if s.Prompt == "" && s.Spec == "" {
			warnings = append(warnings, fmt.Sprintf("step %q has neither prompt nor spec", s.Name))
		}
	}

	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; !ok {
				return warnings, fmt.Errorf("%w: step %q depends on %q", ErrUnknownDependency, s.Name, dep)
			}
		}
	}

	order, err := d.TopologicalOrder()
	if err != nil {
		return warnings, err
	}
	if len(order) != len(d.Steps) {
		return warnings, ErrCycle
	}

	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			if byName[dep].ParallelGroup >= s.ParallelGroup {
				return warnings, fmt.Errorf("%w: step %q (group %d) depends on %q (group %d)",
					ErrGroupOrdering, s.Name, s.ParallelGroup, dep, byName[dep].ParallelGroup)
			}
		}
	}

	return warnings, nil
}

// TopologicalOrder returns step names in dependency order via Kahn's
// algorithm. If the graph has a cycle the returned slice is shorter than
// the step count and ErrCycle is returned.
func (d *Definition) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(d.Steps))
	dependents := make(map[string][]string, len(d.Steps))
	names := make([]string, 0, len(d.Steps))

	for _, s := range d.Steps {
		names = append(names, s.Name)
		if _, ok := inDegree[s.Name]; !ok {
			inDegree[s.Name] = 0
		}
	}
	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			inDegree[s.Name]++
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}

	var queue []string
	for _, n := range names {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		var freed []string
		for _, dependent := range dependents[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}

	if len(order) != len(names) {
		return order, ErrCycle
	}
	return order, nil
}

// ExecutionGroups partitions steps by ascending parallel_group. Call
// Validate first to guarantee dependency-respecting order across groups.
func (d *Definition) ExecutionGroups() [][]Step {
	byGroup := make(map[int][]Step)
	for _, s := range d.Steps {
		byGroup[s.ParallelGroup] = append(byGroup[s.ParallelGroup], s)
	}

	groupIDs := make([]int, 0, len(byGroup))
	for g := range byGroup {
		groupIDs = append(groupIDs, g)
	}
	sort.Ints(groupIDs)

	groups := make([][]Step, 0, len(groupIDs))
	for _, g := range groupIDs {
		steps := byGroup[g]
		sort.Slice(steps, func(i, j int) bool { return steps[i].Name < steps[j].Name })
		groups = append(groups, steps)
	}
	return groups
}
