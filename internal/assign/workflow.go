package assign

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/taskmentor/pkg/docstore"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
)

// Workflow is a compiled assignment-domain graph.
type Workflow = flowgraph.CompiledGraph[State, Update]

// Repos bundles the repositories over one store.
type Repos struct {
	Goals    *GoalRepo
	Tasks    *TaskRepo
	Projects *ProjectRepo
	Chats    *ChatRepo
}

// NewRepos builds every repository over store. A nil clock uses the system clock.
func NewRepos(store docstore.Store, now Clock) Repos {
	return Repos{
		Goals:    NewGoalRepo(store, now),
		Tasks:    NewTaskRepo(store, now),
		Projects: NewProjectRepo(store),
		Chats:    NewChatRepo(store, now),
	}
}

// NewAssignmentWorkflow compiles
//
//	analyze -> (needs-goals) ask-for-goals -> END
//	        -> (has-goals)   plan-tasks    -> END
func NewAssignmentWorkflow(repos Repos, reasoner *Reasoner) (*Workflow, error) {
	return flowgraph.NewGraph[State, Update]().
		AddNode(NodeAnalyze, Analyze(repos.Goals, repos.Tasks)).
		AddNode(NodeAskForGoals, AskForGoals()).
		AddNode(NodePlanTasks, PlanTasks(repos.Projects, repos.Tasks, reasoner)).
		AddBranch(NodeAnalyze, RouteOnGoals, map[string]string{
			RouteNeedsGoals: NodeAskForGoals,
			RouteHasGoals:   NodePlanTasks,
		}).
		AddEdge(NodeAskForGoals, flowgraph.END).
		AddEdge(NodePlanTasks, flowgraph.END).
		SetEntry(NodeAnalyze).
		Compile()
}

// NewMentorWorkflow compiles analyze -> mentor -> END.
func NewMentorWorkflow(repos Repos, reasoner *Reasoner) (*Workflow, error) {
	return flowgraph.NewGraph[State, Update]().
		AddNode(NodeAnalyze, Analyze(repos.Goals, repos.Tasks)).
		AddNode(NodeMentor, Mentor(reasoner)).
		AddEdge(NodeAnalyze, NodeMentor).
		AddEdge(NodeMentor, flowgraph.END).
		SetEntry(NodeAnalyze).
		Compile()
}

// Runner executes the workflows with shared run options.
type Runner struct {
	assign *Workflow
	mentor *Workflow
	logger *slog.Logger
	opts   []flowgraph.RunOption
}

// NewRunner compiles both workflows.
func NewRunner(repos Repos, reasoner *Reasoner, logger *slog.Logger, opts ...flowgraph.RunOption) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a, err := NewAssignmentWorkflow(repos, reasoner)
	if err != nil {
		return nil, err
	}
	m, err := NewMentorWorkflow(repos, reasoner)
	if err != nil {
		return nil, err
	}
	return &Runner{assign: a, mentor: m, logger: logger, opts: opts}, nil
}

// Assign runs the assignment workflow for userID.
func (r *Runner) Assign(ctx context.Context, userID string) (State, error) {
	seed := NewState(userID, llm.UserMessage("Triggering task assignment"))
	opts := append([]flowgraph.RunOption{flowgraph.WithGraphName("assign")}, r.opts...)
	return r.assign.Run(flowgraph.NewContext(ctx, flowgraph.WithLogger(r.logger)), seed, opts...)
}

// Mentor runs the mentor workflow for one user message.
func (r *Runner) Mentor(ctx context.Context, userID, message string) (State, error) {
	seed := NewState(userID, llm.UserMessage(message))
	opts := append([]flowgraph.RunOption{flowgraph.WithGraphName("mentor")}, r.opts...)
	return r.mentor.Run(flowgraph.NewContext(ctx, flowgraph.WithLogger(r.logger)), seed, opts...)
}
