package mdb

import (
	"fmt"
	"regexp"
)

// Breakpoint stops continue whenever the current vertex label matches Pattern.
type Breakpoint struct {
	ID      int
	Pattern string
	// Matches counts the enabled edges whose target matched when the
	// breakpoint was set.
	Matches int

	re *regexp.Regexp
}

// Inert reports whether the breakpoint matched nothing when it was set.
func (bp *Breakpoint) Inert() bool { return bp != nil && bp.Matches == 0 }

// MatchString reports whether label triggers the breakpoint.
func (bp *Breakpoint) MatchString(label string) bool {
	return bp != nil && bp.re != nil && bp.re.MatchString(label)
}

// Summary returns a string representation of the breakpoint.
func (bp *Breakpoint) Summary() string {
	if bp == nil {
		return "<nil>"
	}
	return fmt.Sprintf("#%d rbreak %q (%d location(s))", bp.ID, bp.Pattern, bp.Matches)
}

// Breakpoints manages the breakpoints of one evaluation.
type Breakpoints struct {
	nextID int
	list   []*Breakpoint
}

// NewBreakpoints creates a new Breakpoints collection.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{nextID: 1}
}

// Compile validates pattern without registering it.
func Compile(pattern string) (*Breakpoint, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return &Breakpoint{Pattern: pattern, re: re}, nil
}

// Add registers a compiled breakpoint and assigns its id.
func (bps *Breakpoints) Add(bp *Breakpoint) *Breakpoint {
	bp.ID = bps.allocID()
	bps.list = append(bps.list, bp)
	return bp
}

// Clear removes every breakpoint and restarts numbering.
func (bps *Breakpoints) Clear() {
	bps.list = nil
	bps.nextID = 1
}

// List returns copies of all breakpoints in creation order.
func (bps *Breakpoints) List() []Breakpoint {
	if bps == nil || len(bps.list) == 0 {
		return nil
	}
	out := make([]Breakpoint, 0, len(bps.list))
	for _, bp := range bps.list {
		out = append(out, *bp)
	}
	return out
}

// Match returns the first breakpoint, in creation order, that label triggers.
func (bps *Breakpoints) Match(label string) (*Breakpoint, bool) {
	if bps == nil {
		return nil, false
	}
	for _, bp := range bps.list {
		if bp.MatchString(label) {
			return bp, true
		}
	}
	return nil, false
}

func (bps *Breakpoints) allocID() int {
	id := bps.nextID
	bps.nextID++
	return id
}
