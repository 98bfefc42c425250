package engine

import (
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// schedule is the dependency-resolved execution plan for one pass.
//
// Synchronized pipelines are partitioned into levels: every pipeline in level
// i depends only on pipelines in levels < i, so all pipelines within a level
// may execute a phase concurrently. Isolated pipelines run their full phase
// sequence outside this structure.
type schedule struct {
	levels   [][]*Pipeline
	isolated []*Pipeline
}

// selected returns all pipelines in the schedule.
func (s *schedule) selected() []*Pipeline {
	var all []*Pipeline
	for _, level := range s.levels {
		all = append(all, level...)
	}
	return append(all, s.isolated...)
}

// validateGraph checks the full pipeline graph for missing dependencies,
// dependencies on isolated pipelines, and cycles. It always considers every
// configured pipeline regardless of any execution filter.
func validateGraph(pipelines map[string]*Pipeline) error {
	for _, p := range pipelines {
		for _, dep := range p.Dependencies() {
			target, ok := pipelines[dep]
			if !ok {
				return ferrors.ConfigError("pipeline depends on unknown pipeline").
					WithContext("pipeline", p.Name()).
					WithContext("dependency", dep).
					Build()
			}
			if target.IsIsolated() {
				return ferrors.ConfigError("pipeline depends on isolated pipeline").
					WithContext("pipeline", p.Name()).
					WithContext("dependency", dep).
					Build()
			}
			if p.IsIsolated() {
				return ferrors.ConfigError("isolated pipeline declares dependencies").
					WithContext("pipeline", p.Name()).
					Build()
			}
		}
	}
	if cycle := findCycle(pipelines); len(cycle) > 0 {
		return ferrors.ConfigError("cyclic pipeline dependency involving " + strings.Join(cycle, " -> ")).
			WithContext("pipelines", cycle).
			Build()
	}
	return nil
}

// findCycle runs a depth-first check over the dependency adjacency structure
// and returns the member names of the first cycle found, or nil.
func findCycle(pipelines map[string]*Pipeline) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(pipelines))
	var stack []string

	names := make([]string, 0, len(pipelines))
	for name := range pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(name string) []string
	visit = func(name string) []string {
		color[name] = gray
		stack = append(stack, name)
		deps := pipelines[name].Dependencies()
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := pipelines[dep]; !ok {
				continue
			}
			switch color[dep] {
			case gray:
				// Found the back edge; report the cycle members from the
				// first occurrence of dep on the path.
				for i, n := range stack {
					if n == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
				return []string{dep, name, dep}
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for _, name := range names {
		if color[name] == white {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// buildSchedule selects the pipelines for this pass and partitions the
// synchronized ones into dependency levels.
//
// An empty filter selects every pipeline. A non-empty filter selects the
// named pipelines plus their transitive dependencies, plus any pipeline
// marked AlwaysListed (and its dependencies). The graph must already have
// passed validateGraph.
func buildSchedule(pipelines map[string]*Pipeline, filter []string) (*schedule, error) {
	selected := make(map[string]*Pipeline)

	var include func(name string) error
	include = func(name string) error {
		if _, ok := selected[name]; ok {
			return nil
		}
		p, ok := pipelines[name]
		if !ok {
			return ferrors.ConfigError("execution filter names unknown pipeline").
				WithContext("pipeline", name).
				Build()
		}
		selected[name] = p
		for _, dep := range p.Dependencies() {
			if err := include(dep); err != nil {
				return err
			}
		}
		return nil
	}

	if len(filter) == 0 {
		for name := range pipelines {
			if err := include(name); err != nil {
				return nil, err
			}
		}
	} else {
		for _, name := range filter {
			if err := include(name); err != nil {
				return nil, err
			}
		}
		for name, p := range pipelines {
			if p.IsAlwaysListed() {
				if err := include(name); err != nil {
					return nil, err
				}
			}
		}
	}

	s := &schedule{}
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)
	for name, p := range selected {
		if p.IsIsolated() {
			s.isolated = append(s.isolated, p)
			continue
		}
		if _, ok := inDegree[name]; !ok {
			inDegree[name] = 0
		}
		for _, dep := range p.Dependencies() {
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}
	sort.Slice(s.isolated, func(i, j int) bool { return s.isolated[i].Name() < s.isolated[j].Name() })

	// Kahn layering: peel off zero in-degree pipelines level by level so the
	// scheduler can run each level concurrently.
	remaining := len(inDegree)
	for remaining > 0 {
		var names []string
		for name, deg := range inDegree {
			if deg == 0 {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			// Unreachable after validateGraph, kept as a guard.
			return nil, ferrors.InternalError("dependency layering stalled").Build()
		}
		sort.Strings(names)

		level := make([]*Pipeline, 0, len(names))
		for _, name := range names {
			level = append(level, selected[name])
			delete(inDegree, name)
			remaining--
			for _, dependent := range dependents[name] {
				if _, ok := inDegree[dependent]; ok {
					inDegree[dependent]--
				}
			}
		}
		s.levels = append(s.levels, level)
	}

	return s, nil
}
