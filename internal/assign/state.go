package assign

import (
	"slices"

	"github.com/randalmurphal/taskmentor/pkg/flowgraph"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
)

// State is the record threaded through one workflow run. It is created per
// invocation and discarded once the caller has the response text.
type State struct {
	// UserID identifies the user. There is no update field for it, so it
	// cannot change during a run.
	UserID string

	Goals      []string
	ActiveTask *Task
	Messages   []llm.Message

	// ResponseText is what the caller displays and persists.
	ResponseText string

	// RoutingHint is written by the node before a branch for diagnostics.
	RoutingHint string
}

// Update is a node's partial result. Unset Values leave the state alone;
// Messages are appended.
type Update struct {
	Goals        flowgraph.Value[[]string]
	ActiveTask   flowgraph.Value[*Task]
	Messages     []llm.Message
	ResponseText flowgraph.Value[string]
	RoutingHint  flowgraph.Value[string]
}

// NewState returns the initial state for userID with optional seed messages.
func NewState(userID string, seed ...llm.Message) State {
	return State{UserID: userID, Messages: slices.Clone(seed)}
}

// Merge implements flowgraph.Mergeable.
func (s State) Merge(u Update) State {
	s.Goals = u.Goals.Or(s.Goals)
	s.ActiveTask = u.ActiveTask.Or(s.ActiveTask)
	s.Messages = flowgraph.Append(s.Messages, u.Messages)
	s.ResponseText = u.ResponseText.Or(s.ResponseText)
	s.RoutingHint = u.RoutingHint.Or(s.RoutingHint)
	return s
}

// HasGoals reports whether at least one goal is known.
func (s State) HasGoals() bool {
	return len(s.Goals) > 0
}
