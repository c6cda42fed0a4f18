package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt_Render(t *testing.T) {
	p := NewPrompt("planner", `Goals: ${goals}
Return JSON like {"tasks": []} costing $0.
Projects: ${projects}`)

	assert.Equal(t, "planner", p.Name())
	assert.Equal(t, []string{"goals", "projects"}, p.Vars())

	out, err := p.Render(map[string]any{"goals": "learn Go", "projects": "p1"})
	require.NoError(t, err)
	assert.Contains(t, out, "Goals: learn Go")
	assert.Contains(t, out, `{"tasks": []} costing $0.`)
	assert.Contains(t, out, "Projects: p1")
}

func TestPrompt_MissingVariable(t *testing.T) {
	p := NewPrompt("ask_for_goals", "Hello ${user}")

	_, err := p.Render(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask_for_goals")

	var undef *UndefinedVariableError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, []string{"user"}, undef.Names)

	assert.Panics(t, func() { p.MustRender(nil) })
}

func TestPrompt_VarsIsCopy(t *testing.T) {
	p := NewPrompt("x", "${a}")
	v := p.Vars()
	v[0] = "changed"
	assert.Equal(t, []string{"a"}, p.Vars())
}

func TestPromptExpander_Options(t *testing.T) {
	assert.Equal(t, MissingError, promptExpander.missingAction)
	assert.True(t, promptExpander.braceStyle)
	assert.False(t, promptExpander.dollarStyle)

	out, err := promptExpander.Expand("${user} owes $5 for $schema", map[string]any{"user": "u1", "schema": "x"})
	require.NoError(t, err)
	assert.Equal(t, "u1 owes $5 for $schema", out)
}
