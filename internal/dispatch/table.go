// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

// maxSuggestions bounds the "did you mean" list of UnknownCommandError.
const maxSuggestions = 3

// ErrUnknownCommand is returned for commands missing from the table.
var ErrUnknownCommand = errors.New("unknown command")

type (
	// Table maps command names to the packages implementing them.
	Table struct {
		commands map[string]pkgref.Name
	}

	// UnknownCommandError names the missing command and close matches.
	UnknownCommandError struct {
		Command     string
		Suggestions []string
	}
)

// DefaultCommands returns the built-in command table.
func DefaultCommands() map[string]pkgref.Name {
	return map[string]pkgref.Name{
		"init":    "@soa-cli/init",
		"publish": "@soa-cli/publish",
	}
}

func (e *UnknownCommandError) Error() string {
	msg := fmt.Sprintf("unknown command %q", e.Command)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *UnknownCommandError) Unwrap() error { return ErrUnknownCommand }

// NewTable returns the default table extended by overrides, which may also
// replace default entries. Every package name is validated.
func NewTable(overrides map[string]string) (*Table, error) {
	commands := DefaultCommands()
	for cmd, name := range overrides {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			return nil, errors.New("command table: empty command name")
		}
		n := pkgref.Name(strings.TrimSpace(name))
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("command table entry %q: %w", cmd, err)
		}
		commands[cmd] = n
	}
	return &Table{commands: commands}, nil
}

// Lookup returns the package implementing command.
func (t *Table) Lookup(command string) (pkgref.Name, error) {
	if name, ok := t.commands[command]; ok {
		return name, nil
	}
	return "", &UnknownCommandError{Command: command, Suggestions: t.suggest(command)}
}

// Commands returns the command names in lexical order.
func (t *Table) Commands() []string {
	return slices.Sorted(maps.Keys(t.commands))
}

func (t *Table) suggest(command string) []string {
	if command == "" {
		return nil
	}
	matches := fuzzy.Find(command, t.Commands())
	var out []string
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
