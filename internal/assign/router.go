package assign

import "github.com/randalmurphal/taskmentor/pkg/flowgraph"

// Route labels returned by RouteOnGoals.
const (
	RouteNeedsGoals = "needs-goals"
	RouteHasGoals   = "has-goals"
)

// RouteOnGoals sends users without goals to the ask-for-goals node.
// It reads only Goals and has no side effects.
func RouteOnGoals(_ flowgraph.Context, s State) string {
	if s.HasGoals() {
		return RouteHasGoals
	}
	return RouteNeedsGoals
}
