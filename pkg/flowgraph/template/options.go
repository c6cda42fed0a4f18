package template

// MissingAction decides what happens to a placeholder with no value.
type MissingAction int

const (
	// MissingKeep leaves the placeholder in the output. Default.
	MissingKeep MissingAction = iota

	// MissingEmpty drops the placeholder.
	MissingEmpty

	// MissingError fails the expansion with *UndefinedVariableError.
	// Prompts use this so a reasoning call never goes out half-filled.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets the policy for placeholders with no value.
//
//	strict := NewExpander(WithMissingAction(MissingError))
//	_, err := strict.Expand("Goals: ${goals}", nil) // *UndefinedVariableError
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// WithBraceStyle toggles ${var} expansion. On by default.
func WithBraceStyle(enabled bool) Option {
	return func(e *Expander) {
		e.braceStyle = enabled
	}
}

// WithDollarStyle toggles bare $var expansion. On by default; prompts turn
// it off so text like "costs $5" or "$schema" passes through.
//
//	exp := NewExpander(WithDollarStyle(false))
//	out, _ := exp.Expand("${user} owes $5", map[string]any{"user": "u1"})
//	// "u1 owes $5"
func WithDollarStyle(enabled bool) Option {
	return func(e *Expander) {
		e.dollarStyle = enabled
	}
}
