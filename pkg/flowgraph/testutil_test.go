package flowgraph

import (
	"context"
)

// Counter is a minimal state whose nodes add to Value.
type Counter struct {
	Value int
}

// CounterUpdate adds Delta to Counter.Value.
type CounterUpdate struct {
	Delta int
}

func (c Counter) Merge(u CounterUpdate) Counter {
	c.Value += u.Delta
	return c
}

// State exercises the Value and Append merge helpers.
type State struct {
	Step     int
	Progress []string
	Output   string
	GoLeft   bool
	Done     bool
}

// Update is a partial State.
type Update struct {
	Step     Value[int]
	Progress []string
	Output   Value[string]
	GoLeft   Value[bool]
	Done     Value[bool]
}

func (s State) Merge(u Update) State {
	s.Step = u.Step.Or(s.Step)
	s.Progress = Append(s.Progress, u.Progress)
	s.Output = u.Output.Or(s.Output)
	s.GoLeft = u.GoLeft.Or(s.GoLeft)
	s.Done = u.Done.Or(s.Done)
	return s
}

// increment adds one to the counter.
func increment(_ Context, _ Counter) (CounterUpdate, error) {
	return CounterUpdate{Delta: 1}, nil
}

// noop returns an empty update.
func noop(_ Context, _ State) (Update, error) {
	return Update{}, nil
}

// visit records name in Progress.
func visit(name string) NodeFunc[State, Update] {
	return func(_ Context, _ State) (Update, error) {
		return Update{Progress: []string{name}}, nil
	}
}

// failWith returns a node that fails with err.
func failWith(err error) NodeFunc[State, Update] {
	return func(_ Context, _ State) (Update, error) {
		return Update{}, err
	}
}

// panicWith returns a node that panics with v.
func panicWith(v any) NodeFunc[State, Update] {
	return func(_ Context, _ State) (Update, error) {
		panic(v)
	}
}

// route returns a router that always picks label.
func route(label string) RouterFunc[State] {
	return func(_ Context, _ State) string { return label }
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
