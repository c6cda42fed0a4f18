package assign

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/taskmentor/pkg/flowgraph"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
)

// Node IDs used by the workflows.
const (
	NodeAnalyze     = "analyze"
	NodeAskForGoals = "ask-for-goals"
	NodePlanTasks   = "plan-tasks"
	NodeMentor      = "mentor"
)

// Node is the node signature shared by the assignment workflows.
type Node = flowgraph.NodeFunc[State, Update]

// Analyze loads the user's goals and one unfinished task. Missing data is
// returned as empty values; only store failures are errors.
func Analyze(goals *GoalRepo, tasks *TaskRepo) Node {
	return func(ctx flowgraph.Context, s State) (Update, error) {
		rec, found, err := goals.Get(ctx, s.UserID)
		if err != nil {
			return Update{}, err
		}
		var lines []string
		if found {
			lines = rec.Goals.Lines()
		}

		active, err := tasks.ActiveFor(ctx, s.UserID)
		if err != nil {
			return Update{}, err
		}

		ctx.Logger().Info("analyzed user state",
			slog.String("user_id", s.UserID),
			slog.Int("goals", len(lines)),
			slog.Bool("active_task", active != nil),
		)

		return Update{
			Goals:       flowgraph.Set(lines),
			ActiveTask:  flowgraph.Set(active),
			RoutingHint: flowgraph.Set(fmt.Sprintf("goals=%d", len(lines))),
		}, nil
	}
}

// AskForGoals answers with a fixed request for the user's goals.
func AskForGoals() Node {
	return func(_ flowgraph.Context, _ State) (Update, error) {
		text, err := askForGoalsPrompt.Render(nil)
		if err != nil {
			return Update{}, err
		}
		return Update{
			ResponseText: flowgraph.Set(text),
			Messages:     []llm.Message{llm.AssistantMessage(text)},
		}, nil
	}
}

// PlanTasks picks a project for the user's goals through the reasoner and
// creates the proposed tasks. Nothing is written unless the reasoner's
// output parses and validates.
func PlanTasks(projects *ProjectRepo, tasks *TaskRepo, reasoner *Reasoner) Node {
	return func(ctx flowgraph.Context, s State) (Update, error) {
		candidates, err := projects.Active(ctx, MaxCandidateProjects)
		if err != nil {
			return Update{}, err
		}
		if len(candidates) == 0 {
			return Update{}, &NoCandidateProjectsError{UserID: s.UserID}
		}

		prompt, err := plannerPrompt.Render(map[string]any{
			"goals":    bulletList(s.Goals),
			"projects": projectList(candidates),
			"count":    TasksPerPlan,
		})
		if err != nil {
			return Update{}, err
		}

		output, err := reasoner.Generate(ctx, []llm.Message{llm.UserMessage(prompt)})
		if err != nil {
			return Update{}, err
		}

		plan, err := ParsePlan(output)
		if err != nil {
			return Update{}, err
		}
		plan, err = plan.Validate(candidates)
		if err != nil {
			var pe *PlanParseError
			if errors.As(err, &pe) {
				pe.Output = truncate(output, 200)
			}
			return Update{}, err
		}
		if len(plan.Tasks) < TasksPerPlan {
			ctx.Logger().Warn("plan has fewer tasks than requested",
				slog.Int("requested", TasksPerPlan),
				slog.Int("received", len(plan.Tasks)),
			)
		}

		titles, err := commitPlan(ctx, tasks, s.UserID, plan)
		if err != nil {
			return Update{}, err
		}

		project := projectByID(candidates, plan.ProjectID)
		summary, err := planSummaryPrompt.Render(map[string]any{
			"count":        len(titles),
			"project_name": project.Name,
			"project_id":   plan.ProjectID,
			"titles":       bulletList(titles),
		})
		if err != nil {
			return Update{}, err
		}

		ctx.Logger().Info("tasks assigned",
			slog.String("user_id", s.UserID),
			slog.String("project_id", plan.ProjectID),
			slog.Int("tasks", len(titles)),
		)

		return Update{
			ResponseText: flowgraph.Set(summary),
			Messages:     []llm.Message{llm.AssistantMessage(summary)},
		}, nil
	}
}

// commitPlan inserts every planned task. Each insert is attempted even if
// an earlier one failed; failures are reported together.
func commitPlan(ctx flowgraph.Context, tasks *TaskRepo, userID string, plan Plan) ([]string, error) {
	var (
		titles   []string
		inserted []string
		errs     []error
	)
	for _, pt := range plan.Tasks {
		id, err := tasks.Insert(ctx, Task{
			ProjectID:   plan.ProjectID,
			Title:       pt.Title,
			Description: pt.Description,
			Status:      StatusPending,
			AssignedTo:  userID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("task %q: %w", pt.Title, err))
			continue
		}
		titles = append(titles, pt.Title)
		inserted = append(inserted, id.String())
	}
	if len(errs) > 0 {
		return nil, &TaskCommitError{
			Attempted: len(plan.Tasks),
			Inserted:  inserted,
			Err:       errors.Join(errs...),
		}
	}
	return titles, nil
}

func projectByID(projects []Project, id string) Project {
	for _, p := range projects {
		if string(p.ID) == id {
			return p
		}
	}
	return Project{Name: id}
}

// Mentor answers the conversation so far as a learning mentor, using the
// goals and active task loaded by Analyze.
func Mentor(reasoner *Reasoner) Node {
	return func(ctx flowgraph.Context, s State) (Update, error) {
		goals := "No goals set yet"
		if s.HasGoals() {
			goals = strings.Join(s.Goals, ", ")
		}
		active := "No active tasks"
		if s.ActiveTask != nil {
			active = s.ActiveTask.Title
		}

		system, err := mentorPrompt.Render(map[string]any{
			"goals":       goals,
			"active_task": active,
		})
		if err != nil {
			return Update{}, err
		}

		messages := append([]llm.Message{llm.SystemMessage(system)}, s.Messages...)
		reply, err := reasoner.Generate(ctx, messages)
		if err != nil {
			return Update{}, err
		}

		return Update{
			ResponseText: flowgraph.Set(reply),
			Messages:     []llm.Message{llm.AssistantMessage(reply)},
		}, nil
	}
}
