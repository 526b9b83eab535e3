// File: pkg/devstack/graph.go
// Brief: Graph utilities for dependency expansion and export.

package devstack

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

type Graph struct {
	deps       map[string][]string
	dependents map[string][]string
	nodes      []string
}

// BuildGraph indexes a dependency graph in both directions. Sentinel and
// unknown dependencies are ignored.
func BuildGraph(graph map[string][]string) *Graph {
	g := &Graph{
		deps:       map[string][]string{},
		dependents: map[string][]string{},
	}
	for name, deps := range graph {
		g.nodes = append(g.nodes, name)
		for _, dep := range deps {
			if _, ok := graph[dep]; !ok {
				continue
			}
			g.deps[name] = append(g.deps[name], dep)
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}
	sort.Strings(g.nodes)
	for k := range g.deps {
		sort.Strings(g.deps[k])
	}
	for k := range g.dependents {
		sort.Strings(g.dependents[k])
	}
	return g
}

func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// DepsOf returns the transitive dependencies of id.
func (g *Graph) DepsOf(id string) []string {
	return walk(g.deps, id)
}

// DependentsOf returns the transitive dependents of id.
func (g *Graph) DependentsOf(id string) []string {
	return walk(g.dependents, id)
}

// Edges returns (layer, dependency) pairs sorted by layer then dependency.
func (g *Graph) Edges() [][2]string {
	var edges [][2]string
	for from, deps := range g.deps {
		for _, to := range deps {
			edges = append(edges, [2]string{from, to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func walk(adj map[string][]string, id string) []string {
	var out []string
	seen := map[string]struct{}{}
	var visit func(string)
	visit = func(cur string) {
		for _, next := range adj[cur] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
			visit(next)
		}
	}
	visit(id)
	sort.Strings(out)
	return out
}

// WriteDOT renders the graph in Graphviz format. Edges point from a
// dependency to the layer that needs it.
func (g *Graph) WriteDOT(w io.Writer, title string) error {
	fmt.Fprintf(w, "digraph %q {\n", title)
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box];")
	for _, n := range g.nodes {
		fmt.Fprintf(w, "  %q;\n", n)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(w, "  %q -> %q;\n", e[1], e[0])
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// WriteMermaid renders the graph as a Mermaid flowchart.
func (g *Graph) WriteMermaid(w io.Writer) error {
	fmt.Fprintln(w, "graph TD")
	for _, n := range g.nodes {
		fmt.Fprintf(w, "  %s[\"%s\"]\n", safeID(n), n)
	}
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(w, "  %s --> %s\n", safeID(e[1]), safeID(e[0])); err != nil {
			return err
		}
	}
	return nil
}

func safeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "n"
	}
	return b.String()
}
