package devstack

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestResolve_LinearChain(t *testing.T) {
	order, err := Resolve(map[string][]string{
		"A": {NoDependency},
		"B": {"A"},
		"C": {"A", "B"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []string{"A", "B", "C"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order=%v want=%v", order, want)
	}
}

func TestResolve_EmptyDependencySetIsReady(t *testing.T) {
	order, err := Resolve(map[string][]string{
		"A": {},
		"B": {"A"},
		"C": {"A", "B"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []string{"A", "B", "C"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order=%v want=%v", order, want)
	}
}

func TestResolve_TieBreakIsLexicographic(t *testing.T) {
	graph := map[string][]string{
		"b": {NoDependency},
		"a": {NoDependency},
		"c": {"a"},
	}
	for i := 0; i < 20; i++ {
		order, err := Resolve(graph)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if want := []string{"a", "b", "c"}; !reflect.DeepEqual(order, want) {
			t.Fatalf("iteration %d: order=%v want=%v", i, order, want)
		}
	}
}

func TestResolve_CycleFails(t *testing.T) {
	order, err := Resolve(map[string][]string{
		"A": {"B"},
		"B": {"A"},
	})
	if order != nil {
		t.Fatalf("expected no partial order, got %v", order)
	}
	var depErr *DependencyResolutionError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DependencyResolutionError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Dependency resolution failed") {
		t.Fatalf("message=%q", err.Error())
	}
	if !reflect.DeepEqual(depErr.Stuck, []string{"A", "B"}) {
		t.Fatalf("stuck=%v", depErr.Stuck)
	}
	if len(depErr.Cycle) != 2 {
		t.Fatalf("cycle=%v", depErr.Cycle)
	}
	if ExitCode(err) == 0 {
		t.Fatalf("expected non-zero exit code")
	}
}

func TestResolve_CycleBehindReadyLayers(t *testing.T) {
	_, err := Resolve(map[string][]string{
		"base": {NoDependency},
		"x":    {"base", "z"},
		"y":    {"x"},
		"z":    {"y"},
	})
	var depErr *DependencyResolutionError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DependencyResolutionError, got %v", err)
	}
	if !reflect.DeepEqual(depErr.Stuck, []string{"x", "y", "z"}) {
		t.Fatalf("stuck=%v", depErr.Stuck)
	}
	if !strings.Contains(err.Error(), "dependency cycle detected") {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestResolve_MissingDependency(t *testing.T) {
	_, err := Resolve(map[string][]string{
		"app": {"db"},
	})
	var depErr *DependencyResolutionError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DependencyResolutionError, got %v", err)
	}
	if len(depErr.Missing) != 1 || depErr.Missing[0] != (MissingEdge{Layer: "app", Dependency: "db"}) {
		t.Fatalf("missing=%v", depErr.Missing)
	}
}

func TestResolvePlan_AllowMissing(t *testing.T) {
	p, err := ResolvePlan(map[string][]string{
		"app": {"db"},
		"web": {"app"},
	}, ResolveOptions{AllowMissing: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []string{"app", "web"}; !reflect.DeepEqual(p.Order, want) {
		t.Fatalf("order=%v want=%v", p.Order, want)
	}
}

func TestResolvePlan_Waves(t *testing.T) {
	p, err := ResolvePlan(map[string][]string{
		"net":   {NoDependency},
		"db":    {"net"},
		"cache": {"net"},
		"app":   {"db", "cache"},
	}, ResolveOptions{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := [][]string{{"net"}, {"cache", "db"}, {"app"}}
	if !reflect.DeepEqual(p.Waves, want) {
		t.Fatalf("waves=%v want=%v", p.Waves, want)
	}
	if !reflect.DeepEqual(p.Needs["app"], []string{"cache", "db"}) {
		t.Fatalf("needs=%v", p.Needs["app"])
	}
}

func TestResolve_DependenciesPrecedeDependents(t *testing.T) {
	graph := map[string][]string{
		"a": {NoDependency},
		"b": {"a"},
		"c": {"b"},
		"d": {"a", "c"},
		"e": {NoDependency},
		"f": {"e", "d"},
		"g": {"f", "b"},
	}
	order, err := Resolve(graph)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(order) != len(graph) {
		t.Fatalf("order=%v", order)
	}
	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	for name, deps := range graph {
		for _, dep := range deps {
			if dep == NoDependency {
				continue
			}
			if pos[dep] >= pos[name] {
				t.Fatalf("%s (pos %d) must come after %s (pos %d): %v", name, pos[name], dep, pos[dep], order)
			}
		}
	}
}

func TestGraph_Closures(t *testing.T) {
	g := BuildGraph(map[string][]string{
		"a": {NoDependency},
		"b": {"a"},
		"c": {"b"},
	})
	if got := g.DepsOf("c"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("deps=%v", got)
	}
	if got := g.DependentsOf("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("dependents=%v", got)
	}
	if got := g.Edges(); len(got) != 2 || got[0] != [2]string{"b", "a"} {
		t.Fatalf("edges=%v", got)
	}
	var b strings.Builder
	if err := g.WriteDOT(&b, "demo"); err != nil {
		t.Fatalf("dot: %v", err)
	}
	if !strings.Contains(b.String(), `"a" -> "b";`) {
		t.Fatalf("dot output:\n%s", b.String())
	}
}
