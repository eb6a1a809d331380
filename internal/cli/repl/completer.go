package repl

import (
	"sort"
	"strings"
)

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the given command names.
func NewCompleter(commands ...string) *Completer {
	c := &Completer{commands: append([]string(nil), commands...)}
	sort.Strings(c.commands)
	return c
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Commands returns every known command name.
func (c *Completer) Commands() []string {
	return append([]string(nil), c.commands...)
}
