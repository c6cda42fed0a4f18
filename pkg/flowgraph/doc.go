/*
Package flowgraph runs small, typed workflows as directed graphs.

# Overview

A graph is a set of named nodes joined by edges. Each node reads the
current state and returns a partial update; the engine merges the update
into the state and moves to the next node until it reaches END.

	type State struct {
	    Goals    string
	    Response string
	}

	type Update struct {
	    Response flowgraph.Value[string]
	}

	func (s State) Merge(u Update) State {
	    s.Response = u.Response.Or(s.Response)
	    return s
	}

Fields of an update wrapped in Value are applied only when set with
flowgraph.Set, so a node that does not touch a field leaves it alone.
Slices accumulate with flowgraph.Append, which never writes into the
caller's backing array.

# Basic Usage

	compiled, err := flowgraph.NewGraph[State, Update]().
	    AddNode("respond", respond).
	    AddEdge("respond", flowgraph.END).
	    SetEntry("respond").
	    Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, State{Goals: "learn go"})

Compile validates the structure: the entry point exists, every edge and
route points to a known node, every node has exactly one way out, every
node is reachable and END is reachable from the entry point. All problems
are reported together through errors.Join.

# Branches

A branch node hands the merged state to a router, which returns a label.
The label is looked up in the route table declared with AddBranch:

	graph.AddBranch("analyze", func(ctx flowgraph.Context, s State) string {
	    if strings.TrimSpace(s.Goals) == "" {
	        return "no_goals"
	    }
	    return "has_goals"
	}, map[string]string{
	    "no_goals":  "ask_for_goals",
	    "has_goals": "plan",
	})

A label missing from the table stops the run with *RouterError wrapping
ErrUnknownRoute. Routes may point back to earlier nodes; loops are bounded
by WithMaxIterations (default 1000).

# Services

Nodes receive stores and reasoning clients through their constructors,
not through the Context:

	func NewPlanNode(store Store, client llm.Client) flowgraph.NodeFunc[State, Update] {
	    return func(ctx flowgraph.Context, s State) (Update, error) { ... }
	}

# Observability

	result, err := compiled.Run(ctx, state,
	    flowgraph.WithObservabilityLogger(logger),
	    flowgraph.WithMetrics(true),
	    flowgraph.WithTracing(true),
	    flowgraph.WithRunID("run-123"))

Logs carry run_id, node_id and duration_ms. Metrics and spans go to the
global OpenTelemetry providers, see observability.SetupProviders.

# Error Handling

	var nodeErr *flowgraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

Node errors are never retried by the engine. Panics are recovered into
*PanicError with a stack trace. Cancellation is checked before each node
and reported as *CancellationError. On any error Run returns the state as
it was after the last successful node.

# Thread Safety

  - Graph is not safe for concurrent use during construction
  - CompiledGraph is immutable and safe for concurrent runs
  - Context is safe for concurrent use

# Subpackages

  - config: layered YAML/JSON/env configuration
  - errors: retry policies for outbound calls
  - llm: reasoning client interface and providers
  - observability: logging, metrics, tracing and provider setup
  - registry: named factories for stores and providers
  - template: prompt rendering
*/
package flowgraph
