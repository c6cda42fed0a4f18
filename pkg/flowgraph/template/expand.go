package template

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// bracePattern matches ${name}.
	bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

	// dollarPattern matches $name up to a word boundary, so $port does not
	// match inside $portNumber.
	dollarPattern = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_]*)(?:\b|$)`)
)

// Expander expands variable patterns in strings.
// Safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	braceStyle    bool
	dollarStyle   bool
}

// NewExpander creates a new Expander with the given options.
//
// Defaults: MissingKeep, brace style on, dollar style on.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		braceStyle:    true,
		dollarStyle:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand expands variable patterns in s using vars.
// An error is returned only under MissingError.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	replace := func(name, match string) string {
		if val, ok := vars[name]; ok {
			return fmt.Sprint(val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, name)
		}
		return match
	}

	result := s
	// Braces first: they are the more specific form.
	if e.braceStyle {
		result = bracePattern.ReplaceAllStringFunc(result, func(match string) string {
			return replace(match[2:len(match)-1], match)
		})
	}
	if e.dollarStyle {
		result = dollarPattern.ReplaceAllStringFunc(result, func(match string) string {
			return replace(match[1:], match)
		})
	}

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// MustExpand is like Expand but panics on error.
func (e *Expander) MustExpand(s string, vars map[string]any) string {
	result, err := e.Expand(s, vars)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return result
}

// ExpandMap expands all string values of m, recursing into nested maps.
// Non-string values are copied as-is. Returns a new map.
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		var err error
		switch val := v.(type) {
		case string:
			result[k], err = e.Expand(val, vars)
		case map[string]any:
			result[k], err = e.ExpandMap(val, vars)
		default:
			result[k] = v
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Names returns the distinct variable names referenced in s, in order of
// first appearance, honoring the enabled styles.
func (e *Expander) Names(s string) []string {
	seen := make(map[string]bool)
	var names []string
	collect := func(re *regexp.Regexp) {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	if e.braceStyle {
		collect(bracePattern)
	}
	if e.dollarStyle {
		collect(dollarPattern)
	}
	return names
}

// UndefinedVariableError is returned under MissingError when one or more
// variables are not found.
type UndefinedVariableError struct {
	Names []string
}

func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

var defaultExpander = NewExpander()

// Expand expands s with the default expander; missing variables are kept.
func Expand(s string, vars map[string]any) string {
	result, _ := defaultExpander.Expand(s, vars)
	return result
}

// ExpandMap expands m with the default expander; missing variables are kept.
func ExpandMap(m map[string]any, vars map[string]any) map[string]any {
	result, _ := defaultExpander.ExpandMap(m, vars)
	return result
}
