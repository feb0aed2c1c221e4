// Package dag builds the validated dependency graph a scheduler run
// walks: one execution node per normal step, edges from depends_on, and
// on_error steps held aside as the run's terminal error level.
package dag

import (
	"sort"

	"github.com/vk/ladle/internal/recipe"
)

// Graph is the derived, read-only view over a recipe's steps. It is
// rebuilt per invocation (including every sub-recipe invocation) and
// never mutated mid-run; all runtime state lives on the nodes.
type Graph struct {
	// Nodes holds the normal-trigger steps by name.
	Nodes map[string]*Node

	// Ordered lists normal nodes by declared index. The index is a
	// reporting and dispatch tie-break only, never a dependency.
	Ordered []*Node

	// OnError lists on_error-trigger nodes by declared index. They have
	// no edges and run only after a failed DAG is exhausted.
	OnError []*Node
}

// Build constructs the graph for one recipe. It fails with
// UnknownDependencyError when depends_on names an absent step and with
// CyclicDependencyError when the dependency relation is not acyclic.
// Either failure aborts the run before any step executes.
func Build(rec *recipe.Recipe) (*Graph, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	g := &Graph{Nodes: make(map[string]*Node, len(rec.Steps))}

	for i := range rec.Steps {
		spec := &rec.Steps[i]
		node := &Node{Spec: spec}
		if spec.Trigger == recipe.TriggerOnError {
			g.OnError = append(g.OnError, node)
			continue
		}
		g.Nodes[spec.Name] = node
		g.Ordered = append(g.Ordered, node)
	}

	sortByIndex(g.Ordered)
	sortByIndex(g.OnError)

	for _, node := range g.Ordered {
		for _, depName := range node.Spec.DependsOn {
			dep, ok := g.Nodes[depName]
			if !ok {
				return nil, &UnknownDependencyError{
					Recipe:     rec.Name,
					Step:       node.Name(),
					Dependency: depName,
				}
			}
			node.Deps = append(node.Deps, dep)
			dep.Dependents = append(dep.Dependents, node)
		}
	}

	if cycle := findCycle(g.Ordered); cycle != nil {
		return nil, &CyclicDependencyError{Recipe: rec.Name, Cycle: cycle}
	}
	return g, nil
}

func sortByIndex(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Spec.Index < nodes[j].Spec.Index
	})
}

// findCycle runs a depth-first search over dependency edges and returns
// the first cycle found as a step-name path ending where it began, or nil.
func findCycle(nodes []*Node) []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[*Node]int, len(nodes))
	var stack []string

	var visit func(n *Node) []string
	visit = func(n *Node) []string {
		state[n] = inStack
		stack = append(stack, n.Name())

		for _, dep := range n.Deps {
			switch state[dep] {
			case inStack:
				// Trim the stack down to where the cycle starts.
				start := 0
				for i, name := range stack {
					if name == dep.Name() {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				return append(cycle, dep.Name())
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}

	for _, n := range nodes {
		if state[n] == unvisited {
			if cycle := visit(n); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
