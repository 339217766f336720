package mdb

import (
	"fmt"

	"mdb/internal/graph"
)

// Frame describes one edge of the execution as the user sees it.
type Frame struct {
	Edge         graph.EdgeID
	Label        string
	Kind         graph.EventKind
	Depth        int
	PointOfEvent graph.FileLocation
	Location     graph.FileLocation
	Elapsed      float64
}

// String formats the frame as "label (Kind)".
func (f Frame) String() string {
	return fmt.Sprintf("%s (%s)", f.Label, f.Kind)
}

func makeFrame(g *graph.Graph, fr frame) Frame {
	e := g.Edge(fr.edge)
	v := g.Vertex(e.Target)
	return Frame{
		Edge:         e.ID,
		Label:        v.Node.Text,
		Kind:         e.Kind,
		Depth:        fr.depth,
		PointOfEvent: e.PointOfEvent,
		Location:     v.Location,
		Elapsed:      e.Elapsed,
	}
}

// Report tells the caller what a movement of the cursor ended on.
type Report uint8

const (
	// ReportNone means there is nothing to show, e.g. a zero count.
	ReportNone Report = iota
	// ReportFrame means the cursor stopped on Outcome.Frame.
	ReportFrame
	// ReportBreakpoint means Outcome.Breakpoint matched Outcome.Frame.
	ReportBreakpoint
	// ReportFinished means the cursor ran past the last frame.
	ReportFinished
	// ReportBeginning means the cursor ran back before the first frame.
	ReportBeginning
)

// String returns the string representation of Report.
func (r Report) String() string {
	switch r {
	case ReportNone:
		return "none"
	case ReportFrame:
		return "frame"
	case ReportBreakpoint:
		return "breakpoint"
	case ReportFinished:
		return "finished"
	case ReportBeginning:
		return "beginning"
	default:
		return "unknown"
	}
}

// Outcome is the result of step and continue.
type Outcome struct {
	Report     Report
	Frame      Frame
	Breakpoint *Breakpoint
}
