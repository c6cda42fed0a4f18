package flowgraph

import "sort"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
type CompiledGraph[S Mergeable[S, U], U any] struct {
	nodes      map[string]NodeFunc[S, U]
	order      []string
	next       map[string]string
	branches   map[string]branch[S]
	entryPoint string
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S, U]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in registration order.
func (cg *CompiledGraph[S, U]) NodeIDs() []string {
	ids := make([]string, len(cg.order))
	copy(ids, cg.order)
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S, U]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the node IDs control can pass to from id, via its
// edge or any of its routes. Returns nil for END or unknown nodes.
func (cg *CompiledGraph[S, U]) Successors(id string) []string {
	if next, ok := cg.next[id]; ok {
		return []string{next}
	}
	b, ok := cg.branches[id]
	if !ok {
		return nil
	}
	seen := make(map[string]bool, len(b.routes))
	var out []string
	for _, label := range sortedKeys(b.routes) {
		to := b.routes[label]
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	return out
}

// Routes returns a copy of the route table of a branch node,
// or nil if id is not a branch point.
func (cg *CompiledGraph[S, U]) Routes(id string) map[string]string {
	b, ok := cg.branches[id]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(b.routes))
	for label, to := range b.routes {
		out[label] = to
	}
	return out
}

// IsBranch returns true if the node is a branch point.
func (cg *CompiledGraph[S, U]) IsBranch(id string) bool {
	_, ok := cg.branches[id]
	return ok
}

// Terminals returns the sorted IDs of nodes that can hand control to END.
func (cg *CompiledGraph[S, U]) Terminals() []string {
	var out []string
	for _, id := range cg.order {
		for _, to := range cg.Successors(id) {
			if to == END {
				out = append(out, id)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// getNode returns the node function for the given ID.
func (cg *CompiledGraph[S, U]) getNode(id string) (NodeFunc[S, U], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}
