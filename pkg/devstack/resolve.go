// File: pkg/devstack/resolve.go
// Brief: Kahn ordering with deterministic waves and cycle reporting.

package devstack

import (
	"sort"
)

// ResolveOptions tunes dependency resolution.
type ResolveOptions struct {
	// AllowMissing treats dependencies on unregistered layers as satisfied
	// instead of failing. Missing names never appear in the order.
	AllowMissing bool
}

// Plan is the resolved execution plan of a dependency graph.
type Plan struct {
	Order []string `json:"order"`
	// Waves groups the order by the Kahn iteration that released each layer.
	Waves [][]string          `json:"waves"`
	Needs map[string][]string `json:"needs"`
}

// Resolve returns the execution order for graph using the default options.
func Resolve(graph map[string][]string) ([]string, error) {
	p, err := ResolvePlan(graph, ResolveOptions{})
	if err != nil {
		return nil, err
	}
	return p.Order, nil
}

// ResolvePlan linearizes graph with Kahn's algorithm. Each iteration releases
// every layer whose remaining dependencies are satisfied, sorted by name, so
// the result is stable for a fixed graph. It fails without a partial result
// when a dependency is missing or when a cycle blocks progress.
func ResolvePlan(graph map[string][]string, opts ResolveOptions) (*Plan, error) {
	remaining := make(map[string]map[string]struct{}, len(graph))
	needs := make(map[string][]string, len(graph))
	var missing []MissingEdge
	for name, deps := range graph {
		set := map[string]struct{}{}
		var declared []string
		for _, dep := range deps {
			if dep == "" || dep == NoDependency {
				continue
			}
			if _, ok := graph[dep]; !ok {
				if !opts.AllowMissing {
					missing = append(missing, MissingEdge{Layer: name, Dependency: dep})
				}
				continue
			}
			set[dep] = struct{}{}
			declared = append(declared, dep)
		}
		sort.Strings(declared)
		remaining[name] = set
		needs[name] = declared
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool {
			if missing[i].Layer != missing[j].Layer {
				return missing[i].Layer < missing[j].Layer
			}
			return missing[i].Dependency < missing[j].Dependency
		})
		return nil, &DependencyResolutionError{Missing: missing}
	}

	p := &Plan{Needs: needs}
	for len(remaining) > 0 {
		var ready []string
		for name, deps := range remaining {
			if len(deps) == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			stuck := make([]string, 0, len(remaining))
			for name := range remaining {
				stuck = append(stuck, name)
			}
			sort.Strings(stuck)
			return nil, &DependencyResolutionError{Stuck: stuck, Cycle: findCycle(stuck, remaining)}
		}
		sort.Strings(ready)
		for _, name := range ready {
			delete(remaining, name)
		}
		for _, deps := range remaining {
			for _, name := range ready {
				delete(deps, name)
			}
		}
		p.Order = append(p.Order, ready...)
		p.Waves = append(p.Waves, ready)
	}
	return p, nil
}

// findCycle returns one dependency cycle among the stuck layers, following
// edges from a layer to the layers it still waits on.
func findCycle(stuck []string, remaining map[string]map[string]struct{}) []string {
	vis := map[string]bool{}
	onStack := map[string]bool{}
	var stack []string
	var cycle []string
	var dfs func(string) bool
	dfs = func(id string) bool {
		vis[id] = true
		onStack[id] = true
		stack = append(stack, id)
		deps := make([]string, 0, len(remaining[id]))
		for dep := range remaining[id] {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := remaining[dep]; !ok {
				continue
			}
			if !vis[dep] {
				if dfs(dep) {
					return true
				}
				continue
			}
			if onStack[dep] {
				for i := range stack {
					if stack[i] == dep {
						cycle = append([]string(nil), stack[i:]...)
						return true
					}
				}
			}
		}
		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}
	for _, id := range stuck {
		if vis[id] {
			continue
		}
		if dfs(id) {
			break
		}
	}
	return cycle
}
