// Package assign implements task assignment: the workflow state, the nodes
// that read goals and plan tasks, the goal-presence router, and the goal
// operations served outside the graph.
//
// The assignment workflow is
//
//	analyze -> RouteOnGoals -> ask-for-goals | plan-tasks -> END
//
// Nodes receive their collaborators (repositories, the Reasoner) through
// their constructors. The engine merges each node's Update into State; no
// node returns the full state.
package assign
