// Package command maps typed lines to registered commands.
//
// A command is selected by any non-empty prefix of one of its aliases as
// long as no other command shares that prefix; typing an alias in full
// always selects its command. The rest of the line, trimmed, becomes the
// argument string.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrCommandNotFound is returned for unknown and ambiguous command names alike.
var ErrCommandNotFound = errors.New("command not found")

// Handler runs a command with its argument string.
type Handler func(ctx context.Context, args string) error

// Command is one entry of the command table.
type Command struct {
	Keys       []string // aliases, the first one is the display name
	Repeatable bool     // a blank line runs it again
	Handler    Handler
	Usage      string // argument synopsis, e.g. "[over] [n]"
	Short      string
	Long       string
}

// Name returns the first alias.
func (c Command) Name() string {
	if len(c.Keys) == 0 {
		return ""
	}
	return c.Keys[0]
}

// Synopsis returns all aliases joined by '|' followed by the usage.
func (c Command) Synopsis() string {
	s := strings.Join(c.Keys, "|")
	if c.Usage != "" {
		s += " " + c.Usage
	}
	return s
}

// Map is an ordered command table.
type Map struct {
	commands []Command
}

// NewMap validates the table: every command needs at least one alias, and
// aliases must be unique, non-empty and free of whitespace.
func NewMap(commands []Command) (*Map, error) {
	seen := make(map[string]bool)
	for i, c := range commands {
		if len(c.Keys) == 0 {
			return nil, fmt.Errorf("command #%d has no aliases", i)
		}
		for _, k := range c.Keys {
			if k == "" || strings.IndexFunc(k, unicode.IsSpace) >= 0 {
				return nil, fmt.Errorf("command #%d: invalid alias %q", i, k)
			}
			if seen[k] {
				return nil, fmt.Errorf("duplicate alias %q", k)
			}
			seen[k] = true
		}
	}
	return &Map{commands: append([]Command(nil), commands...)}, nil
}

// Commands returns the table in registration order.
func (m *Map) Commands() []Command {
	return append([]Command(nil), m.commands...)
}

// Find returns the command with the exact alias name.
func (m *Map) Find(name string) (Command, bool) {
	for _, c := range m.commands {
		for _, k := range c.Keys {
			if k == name {
				return c, true
			}
		}
	}
	return Command{}, false
}

// Lookup selects the command named by the first word of line and returns
// it with the trimmed remainder of the line.
func (m *Map) Lookup(line string) (Command, string, bool) {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	name, args := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		name, args = line[:i], strings.TrimSpace(line[i:])
	}
	if name == "" {
		return Command{}, "", false
	}

	if c, ok := m.Find(name); ok {
		return c, args, true
	}

	var (
		found Command
		n     int
	)
	for _, c := range m.commands {
		for _, k := range c.Keys {
			if strings.HasPrefix(k, name) {
				found = c
				n++
				break
			}
		}
	}
	if n != 1 {
		return Command{}, "", false
	}
	return found, args, true
}
