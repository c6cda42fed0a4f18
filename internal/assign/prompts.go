package assign

import (
	"strings"

	"github.com/randalmurphal/taskmentor/pkg/flowgraph/template"
)

var (
	askForGoalsPrompt = template.NewPrompt("ask-for-goals",
		`I don't know your goals yet. Tell me what you want to achieve, for example `+
			`"become a backend engineer" or "learn data visualization", and I will `+
			`assign tasks that move you toward them.`)

	plannerPrompt = template.NewPrompt("planner", `You are a project manager assigning work to a learner.

User goals:
${goals}

Candidate projects (id: name):
${projects}

Choose exactly one project from the list that best serves the user's goals and
propose exactly ${count} concrete tasks within it.

Respond with JSON only, no prose, in this shape:
{"project_id": "<id from the list>", "tasks": [{"title": "...", "description": "..."}]}`)

	planSummaryPrompt = template.NewPrompt("plan-summary",
		`Assigned ${count} new tasks from project "${project_name}" (${project_id}):
${titles}`)

	mentorPrompt = template.NewPrompt("mentor", `You are a helpful learning mentor and project assistant.

User's goals: ${goals}
Active task: ${active_task}

Provide helpful, encouraging guidance to help the user achieve their goals and complete their tasks.`)
)

func bulletList(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	return b.String()
}

func projectList(projects []Project) string {
	lines := make([]string, len(projects))
	for i, p := range projects {
		lines[i] = string(p.ID) + ": " + p.Name
	}
	return bulletList(lines)
}
