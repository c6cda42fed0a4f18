/*
Package template expands ${var} and $var placeholders in strings.

Two entry points:

  - Expander and the package-level Expand/ExpandMap for loose expansion,
    e.g. environment references inside configuration values.
  - Prompt for reasoning prompts, where every ${var} must be supplied and
    $ is left alone.

Loose expansion keeps unknown placeholders by default:

	template.Expand("${HOME}/taskmentor.db", map[string]any{"HOME": "/srv"})
	// "/srv/taskmentor.db"

Prompts fail loudly:

	p := template.NewPrompt("ask_for_goals", "Hi ${user}, what are your goals?")
	text, err := p.Render(map[string]any{"user": "u1"})

The dollar style uses a word boundary, so $port does not match inside
$portNumber. Expander and Prompt are safe for concurrent use.
*/
package template
