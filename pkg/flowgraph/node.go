package flowgraph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// Mergeable is implemented by state types whose nodes return partial updates.
// Merge returns a new state with the update applied; it must not mutate the
// receiver. The engine calls Merge after every node, so nodes never have to
// return the full state.
type Mergeable[S, U any] interface {
	Merge(update U) S
}

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and a copy of the current state,
// and return only the fields they changed, as an update of type U.
//
// Example:
//
//	func increment(ctx flowgraph.Context, s Counter) (CounterUpdate, error) {
//	    return CounterUpdate{Delta: 1}, nil
//	}
type NodeFunc[S, U any] func(ctx Context, state S) (U, error)

// RouterFunc selects the outgoing route of a branch node.
// It receives the state after the branch node's update has been merged and
// returns a route label. The label is resolved to a node ID through the
// route table registered with AddBranch.
//
// Routers should be pure: no I/O and no side effects, so they can be
// evaluated any number of times.
//
// Example:
//
//	func route(ctx flowgraph.Context, s State) string {
//	    if s.Done {
//	        return "finish"
//	    }
//	    return "again"
//	}
type RouterFunc[S any] func(ctx Context, state S) string
