package flowgraph

import (
	"errors"
	"fmt"
	"sort"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. All edge and branch sources must reference existing nodes
//  4. All edge and route targets must reference existing nodes or END
//  5. Every node has exactly one outgoing edge or one branch
//  6. Every node is reachable from the entry point
//  7. END is reachable from the entry point
//
// A graph that compiles cannot fail at run time for structural reasons,
// except when a router returns a label missing from its route table.
func (g *Graph[S, U]) Compile() (*CompiledGraph[S, U], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1 & 2. Entry point
	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	// 3 & 4. References
	for _, from := range sortedKeys(g.edges) {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range g.edges[from] {
			if to != END && !g.hasNode(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	for _, from := range sortedKeys(g.branches) {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: branch source '%s' does not exist", ErrNodeNotFound, from))
		}
		routes := g.branches[from].routes
		for _, label := range sortedKeys(routes) {
			to := routes[label]
			if to != END && !g.hasNode(to) {
				errs = append(errs, fmt.Errorf("%w: route %q from '%s' targets '%s'", ErrNodeNotFound, label, from, to))
			}
		}
	}

	// 5. Exactly one way out of every node
	for _, id := range g.order {
		edges := g.edges[id]
		_, isBranch := g.branches[id]
		switch {
		case isBranch && len(edges) > 0:
			errs = append(errs, fmt.Errorf("%w: %s", ErrEdgeAndBranch, id))
		case len(edges) > 1:
			errs = append(errs, fmt.Errorf("%w: %s has %d edges", ErrMultipleEdges, id, len(edges)))
		case !isBranch && len(edges) == 0:
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, id))
		}
	}

	// 6 & 7. Reachability
	if g.hasNode(g.entryPoint) {
		reachable := g.findReachable()
		for _, id := range g.order {
			if !reachable[id] {
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnreachableNode, id))
			}
		}
		if !reachable[END] {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

func (g *Graph[S, U]) hasNode(id string) bool {
	_, exists := g.nodes[id]
	return exists
}

// targets returns every node (or END) that id can hand control to.
func (g *Graph[S, U]) targets(id string) []string {
	out := append([]string(nil), g.edges[id]...)
	if b, ok := g.branches[id]; ok {
		for _, label := range sortedKeys(b.routes) {
			out = append(out, b.routes[label])
		}
	}
	return out
}

// findReachable returns the set of nodes reachable from the entry point.
// END is included when some path terminates.
func (g *Graph[S, U]) findReachable() map[string]bool {
	reachable := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.targets(current) {
			if reachable[next] {
				continue
			}
			reachable[next] = true
			if next != END {
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S, U]) buildCompiledGraph() *CompiledGraph[S, U] {
	nodes := make(map[string]NodeFunc[S, U], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	next := make(map[string]string, len(g.edges))
	for from, targets := range g.edges {
		next[from] = targets[0]
	}

	branches := make(map[string]branch[S], len(g.branches))
	for from, b := range g.branches {
		routes := make(map[string]string, len(b.routes))
		for label, to := range b.routes {
			routes[label] = to
		}
		branches[from] = branch[S]{router: b.router, routes: routes}
	}

	order := make([]string, len(g.order))
	copy(order, g.order)

	return &CompiledGraph[S, U]{
		nodes:      nodes,
		order:      order,
		next:       next,
		branches:   branches,
		entryPoint: g.entryPoint,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
