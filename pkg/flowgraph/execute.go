package flowgraph

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/taskmentor/pkg/flowgraph/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Start at the entry point node
//  2. Check for cancellation
//  3. Execute the current node and merge its update into the state
//  4. Follow the node's edge, or evaluate its router on the merged state
//  5. Repeat until END is reached or an error occurs
//
// Node errors are returned wrapped in *NodeError and are never retried.
// Panics in nodes become *PanicError; panics in routers become *RouterError
// wrapping *PanicError.
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // result contains state at point of failure
//	}
func (cg *CompiledGraph[S, U]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var tracingCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, cfg.graphName, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.walk(tracingCtx, ctx, state, &cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(ctx, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Milliseconds()), lastNodeOf(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, runID, float64(duration.Milliseconds()), nodeCount)
	}

	return result, runErr
}

// lastNodeOf extracts the failing node from engine errors, if any.
func lastNodeOf(err error) string {
	var nodeErr *NodeError
	var panicErr *PanicError
	var routerErr *RouterError
	var maxErr *MaxIterationsError
	var cancelErr *CancellationError
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &routerErr):
		return routerErr.FromNode
	case errors.As(err, &maxErr):
		return maxErr.LastNodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	}
	return ""
}

// walk executes nodes from the entry point until END.
// tracingCtx carries span context; fgCtx is the flowgraph Context.
// Returns the final state, node count, and any error.
func (cg *CompiledGraph[S, U]) walk(tracingCtx context.Context, fgCtx Context, state S, cfg *runConfig) (S, int, error) {
	current := cg.entryPoint
	iterations := 0
	nodeCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, nodeCount, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-fgCtx.Done():
			return state, nodeCount, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  fgCtx.Err(),
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		update, nodeErr := cg.executeNode(cg.nodeContext(fgCtx, nodeTracingCtx, current), current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)

		if nodeErr != nil {
			if cfg.tracingEnabled {
				cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
			}
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, nodeCount, nodeErr
		}

		state = state.Merge(update)
		nodeCount++
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))

		next, label, err := cg.nextNode(cg.nodeContext(fgCtx, nodeTracingCtx, current), state, current)
		if label != "" {
			observability.LogBranch(cfg.logger, current, label, next)
			cfg.metrics.RecordBranch(nodeTracingCtx, current, label)
			if cfg.tracingEnabled {
				cfg.spans.AddSpanEvent(nodeTracingCtx, "route",
					attribute.String("route.label", label),
					attribute.String("route.next", next),
				)
			}
		}
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, err)
		}
		if err != nil {
			return state, nodeCount, err
		}

		current = next
	}

	return state, nodeCount, nil
}

// nodeContext derives the per-node Context: node-enriched logger and,
// when tracing, the node span's context.
func (cg *CompiledGraph[S, U]) nodeContext(fgCtx Context, tracingCtx context.Context, nodeID string) Context {
	ec, ok := fgCtx.(*executionContext)
	if !ok {
		return fgCtx
	}
	return ec.withNodeID(nodeID).withTracing(tracingCtx)
}

// executeNode executes a single node with panic recovery.
// Returns the node's update and any error (including wrapped panics).
func (cg *CompiledGraph[S, U]) executeNode(ctx Context, nodeID string, state S) (update U, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// Unreachable after a successful Compile.
		return update, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			var zero U
			update = zero
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	update, err = fn(ctx, state)
	if err != nil {
		return update, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return update, nil
}

// nextNode determines the node after current.
// For branch nodes it also returns the label the router chose.
func (cg *CompiledGraph[S, U]) nextNode(ctx Context, state S, current string) (next, label string, err error) {
	if to, ok := cg.next[current]; ok {
		return to, "", nil
	}

	b, ok := cg.branches[current]
	if !ok {
		// Unreachable after a successful Compile.
		return "", "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current),
		}
	}

	label, err = evalRouter(ctx, b.router, state, current)
	if err != nil {
		return "", "", &RouterError{FromNode: current, Err: err}
	}
	to, ok := b.routes[label]
	if !ok {
		return "", label, &RouterError{
			FromNode: current,
			Returned: label,
			Err:      ErrUnknownRoute,
		}
	}

	return to, label, nil
}

// evalRouter evaluates router, converting a panic into *PanicError.
func evalRouter[S any](ctx Context, router RouterFunc[S], state S, nodeID string) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()
	return router(ctx, state), nil
}
