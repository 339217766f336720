package command

import (
	"context"
	"strings"
)

// Dispatcher runs lines against a Map and remembers the previous line so a
// blank line can repeat a repeatable command.
type Dispatcher struct {
	m          *Map
	prevLine   string
	repeatable bool
	history    []string
}

// NewDispatcher creates a dispatcher over m.
func NewDispatcher(m *Map) *Dispatcher {
	return &Dispatcher{m: m}
}

// Map returns the command table.
func (d *Dispatcher) Map() *Map { return d.m }

// History returns the distinct consecutive non-blank lines dispatched so far.
func (d *Dispatcher) History() []string {
	return append([]string(nil), d.history...)
}

// Dispatch runs one line. A blank line repeats the previous line when its
// command was repeatable and does nothing otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) error {
	if strings.TrimSpace(line) == "" {
		if !d.repeatable {
			return nil
		}
		line = d.prevLine
	} else {
		if line != d.prevLine {
			d.history = append(d.history, line)
		}
		d.prevLine = line
	}

	c, args, ok := d.m.Lookup(line)
	if !ok {
		d.repeatable = false
		return ErrCommandNotFound
	}
	d.repeatable = c.Repeatable
	if c.Handler == nil {
		return nil
	}
	return c.Handler(ctx, args)
}
