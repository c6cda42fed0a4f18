package assign

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// TasksPerPlan is the number of tasks a plan should contain.
	TasksPerPlan = 5

	// MaxCandidateProjects caps the active projects offered to the planner.
	MaxCandidateProjects = 5
)

// Plan is the structured decision returned by the reasoning service.
type Plan struct {
	ProjectID string        `json:"project_id"`
	Tasks     []PlannedTask `json:"tasks"`
}

// PlannedTask is one proposed task.
type PlannedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ParsePlan extracts a Plan from model output. It strips code fences, a
// leading "json" tag and prose around the outermost object, then decodes
// it. Unknown fields are ignored; wrong types are errors. The result still
// has to pass Validate before anything is written.
func ParsePlan(output string) (Plan, error) {
	body := extractObject(output)
	if body == "" {
		return Plan{}, &PlanParseError{Reason: "no JSON object in output", Output: truncate(output, 200)}
	}

	var p Plan
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Plan{}, &PlanParseError{Reason: "invalid JSON", Output: truncate(output, 200), Err: err}
	}
	return p, nil
}

// extractObject returns the outermost {...} of s after removing fence
// markers, or "" if there is none.
func extractObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = strings.TrimSpace(s[4:])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// Validate checks p against the candidate projects. A plan must name one
// of the candidates and carry at least one task with a title. Extra tasks
// beyond TasksPerPlan are dropped; the returned plan is normalized.
func (p Plan) Validate(candidates []Project) (Plan, error) {
	p.ProjectID = strings.TrimSpace(p.ProjectID)
	if p.ProjectID == "" {
		return Plan{}, &PlanParseError{Reason: "missing project_id"}
	}
	known := false
	for _, c := range candidates {
		if string(c.ID) == p.ProjectID {
			known = true
			break
		}
	}
	if !known {
		return Plan{}, &PlanParseError{Reason: fmt.Sprintf("project_id %q is not a candidate project", p.ProjectID)}
	}
	if len(p.Tasks) == 0 {
		return Plan{}, &PlanParseError{Reason: "plan has no tasks"}
	}
	if len(p.Tasks) > TasksPerPlan {
		p.Tasks = p.Tasks[:TasksPerPlan]
	}
	tasks := make([]PlannedTask, len(p.Tasks))
	for i, t := range p.Tasks {
		t.Title = strings.TrimSpace(t.Title)
		t.Description = strings.TrimSpace(t.Description)
		if t.Title == "" {
			return Plan{}, &PlanParseError{Reason: fmt.Sprintf("task %d has no title", i+1)}
		}
		tasks[i] = t
	}
	p.Tasks = tasks
	return p, nil
}
