// Package observ keeps the phase timings of the last evaluation.
package observ

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phase is one measured step of an evaluation and what it produced.
type Phase struct {
	Name     string
	Duration time.Duration
	Count    int
	Unit     string
	Failed   bool
}

// Note renders the produced items, e.g. "42 edges".
func (p Phase) Note() string {
	switch {
	case p.Failed:
		return "failed"
	case p.Unit == "":
		return ""
	}
	return strconv.Itoa(p.Count) + " " + p.Unit
}

// Timings collects the phases of one evaluation in the order they
// finished. The zero value is ready to use.
type Timings struct {
	phases []Phase
	now    func() time.Time
}

// Reset forgets the recorded phases.
func (t *Timings) Reset() { t.phases = t.phases[:0] }

func (t *Timings) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Stopwatch measures one phase started by Timings.Start.
type Stopwatch struct {
	t     *Timings
	name  string
	start time.Time
}

// Start begins measuring the named phase.
func (t *Timings) Start(name string) Stopwatch {
	return Stopwatch{t: t, name: name, start: t.clock()}
}

// Stop records the phase with the number of items it produced and
// returns its note.
func (s Stopwatch) Stop(count int, unit string) string {
	p := Phase{Name: s.name, Duration: s.t.clock().Sub(s.start), Count: count, Unit: unit}
	s.t.phases = append(s.t.phases, p)
	return p.Note()
}

// Fail records the phase as failed.
func (s Stopwatch) Fail() {
	s.t.phases = append(s.t.phases, Phase{Name: s.name, Duration: s.t.clock().Sub(s.start), Failed: true})
}

// Phases returns a copy of the recorded phases.
func (t *Timings) Phases() []Phase { return append([]Phase(nil), t.phases...) }

// Total sums the phase durations.
func (t *Timings) Total() time.Duration {
	var total time.Duration
	for _, p := range t.phases {
		total += p.Duration
	}
	return total
}

// Summary renders the phases as the table --timings prints.
func (t *Timings) Summary() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	row := func(name string, d time.Duration, note string) {
		fmt.Fprintf(&sb, "  %-10s %9.3f ms", name, float64(d)/float64(time.Millisecond))
		if note != "" {
			sb.WriteString("  " + note)
		}
		sb.WriteByte('\n')
	}
	for _, p := range t.phases {
		row(p.Name, p.Duration, p.Note())
	}
	row("total", t.Total(), "")
	return sb.String()
}
