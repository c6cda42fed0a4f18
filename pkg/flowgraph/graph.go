package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// branch is a conditional outgoing edge: a router plus its route table.
type branch[S any] struct {
	router RouterFunc[S]
	routes map[string]string
}

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddBranch and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := flowgraph.NewGraph[MyState, MyUpdate]().
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    AddEdge("fetch", "process").
//	    AddEdge("process", flowgraph.END).
//	    SetEntry("fetch")
//
//	compiled, err := graph.Compile()
type Graph[S Mergeable[S, U], U any] struct {
	mu         sync.RWMutex
	nodes      map[string]NodeFunc[S, U]
	order      []string
	edges      map[string][]string
	branches   map[string]branch[S]
	entryPoint string
}

// NewGraph creates a new graph builder for state type S whose nodes return
// updates of type U.
func NewGraph[S Mergeable[S, U], U any]() *Graph[S, U] {
	return &Graph[S, U]{
		nodes:    make(map[string]NodeFunc[S, U]),
		edges:    make(map[string][]string),
		branches: make(map[string]branch[S]),
	}
}

// validateNodeID panics on IDs that can never be valid node names.
func validateNodeID(id string) {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == END {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S, U]) AddNode(id string, fn NodeFunc[S, U]) *Graph[S, U] {
	validateNodeID(id)

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	g.order = append(g.order, id)
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or flowgraph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S, U]) AddEdge(from, to string) *Graph[S, U] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddBranch makes from a branch point. After from executes and its update
// is merged, router is called with the merged state and the returned label
// is looked up in routes to find the next node (or END).
// Returns the graph for method chaining.
//
// Panics if router is nil, routes is empty, or a label is empty.
// Targets are validated at Compile() time.
//
// Example:
//
//	graph.AddBranch("review", pickOutcome, map[string]string{
//	    "approved": "publish",
//	    "rejected": "revise",
//	})
func (g *Graph[S, U]) AddBranch(from string, router RouterFunc[S], routes map[string]string) *Graph[S, U] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}
	if len(routes) == 0 {
		panic("flowgraph: branch must declare at least one route")
	}

	table := make(map[string]string, len(routes))
	for label, to := range routes {
		if label == "" {
			panic("flowgraph: route label cannot be empty")
		}
		table[label] = to
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.branches[from]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate branch for node: %s", from))
	}

	g.branches[from] = branch[S]{router: router, routes: table}
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S, U]) SetEntry(id string) *Graph[S, U] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
