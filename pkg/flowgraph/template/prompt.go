package template

import "fmt"

// promptExpander only honors ${name}: prompts routinely contain literal
// dollar amounts and JSON.
var promptExpander = NewExpander(
	WithMissingAction(MissingError),
	WithDollarStyle(false),
)

// Prompt is a named ${var} template whose variables must all be supplied.
type Prompt struct {
	name string
	text string
	vars []string
}

// NewPrompt parses text and records the variables it references.
func NewPrompt(name, text string) *Prompt {
	return &Prompt{
		name: name,
		text: text,
		vars: promptExpander.Names(text),
	}
}

// Name returns the prompt name.
func (p *Prompt) Name() string { return p.name }

// Vars returns the variable names the prompt references.
func (p *Prompt) Vars() []string {
	out := make([]string, len(p.vars))
	copy(out, p.vars)
	return out
}

// Render fills the template. A missing variable is an error naming the prompt.
func (p *Prompt) Render(vars map[string]any) (string, error) {
	out, err := promptExpander.Expand(p.text, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt %s: %w", p.name, err)
	}
	return out, nil
}

// MustRender is like Render but panics on error.
func (p *Prompt) MustRender(vars map[string]any) string {
	out, err := p.Render(vars)
	if err != nil {
		panic(err)
	}
	return out
}
