package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/taskmentor/pkg/flowgraph"
)

// BenchmarkRun_Linear_5 runs a 5-node linear graph.
func BenchmarkRun_Linear_5(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := flowgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Linear_50 runs a 50-node linear graph.
func BenchmarkRun_Linear_50(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(50))
	ctx := flowgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Branching runs a graph with a branch node.
func BenchmarkRun_Branching(b *testing.B) {
	compiled := mustCompile(buildBranchingGraph())
	ctx := flowgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{Value: i})
	}
}

// BenchmarkRun_Loop runs a looping graph (3 iterations).
func BenchmarkRun_Loop(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(3))
	ctx := flowgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Loop_10 runs a looping graph (10 iterations).
func BenchmarkRun_Loop_10(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(10))
	ctx := flowgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Parallel measures concurrent runs of one compiled graph.
func BenchmarkRun_Parallel(b *testing.B) {
	compiled := mustCompile(buildBranchingGraph())
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := flowgraph.NewContext(context.Background())
		i := 0
		for pb.Next() {
			_, _ = compiled.Run(ctx, State{Value: i})
			i++
		}
	})
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		flowgraph.NewContext(bg)
	}
}

func mustCompile(g *flowgraph.Graph[State, Update]) *flowgraph.CompiledGraph[State, Update] {
	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

// buildLoopGraph loops on a single node until Steps reaches n.
func buildLoopGraph(n int) *flowgraph.Graph[State, Update] {
	step := func(_ flowgraph.Context, _ State) (Update, error) {
		return Update{Steps: 1}, nil
	}
	router := func(_ flowgraph.Context, s State) string {
		if s.Steps >= n {
			return "done"
		}
		return "again"
	}

	return flowgraph.NewGraph[State, Update]().
		AddNode("loop", step).
		AddNode("done", noopNode).
		AddBranch("loop", router, map[string]string{"again": "loop", "done": "done"}).
		AddEdge("done", flowgraph.END).
		SetEntry("loop")
}
