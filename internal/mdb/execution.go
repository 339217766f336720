package mdb

import (
	"fmt"
	"strings"

	"mdb/internal/graph"
)

// Mode selects how the debugger walks a reconverging graph.
type Mode uint8

const (
	// ModeNormal visits a vertex reached again as a leaf.
	ModeNormal Mode = iota
	// ModeFull expands every occurrence of a vertex.
	ModeFull
	// ModeProfile is ModeNormal with children ordered by elapsed time, longest first.
	ModeProfile
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeFull:
		return "full"
	case ModeProfile:
		return "profile"
	default:
		return "unknown"
	}
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return ModeNormal, nil
	case "full":
		return ModeFull, nil
	case "profile":
		return ModeProfile, nil
	default:
		return ModeNormal, fmt.Errorf("invalid evaluation mode: %q (expected: normal|full|profile)", s)
	}
}

// frame is one position of the linearized execution.
type frame struct {
	edge   graph.EdgeID
	parent int // index of the enclosing frame, -1 below the root
	depth  int // 1 for edges leaving the root
}

// linearize lays the enabled part of g out as the sequence of frames the
// debugger steps along: a depth-first walk from the root where children
// follow discovery order.
func linearize(g *graph.Graph, mode Mode) []frame {
	type pending struct {
		edge   graph.EdgeID
		parent int
		depth  int
	}

	byElapsed := mode == ModeProfile
	discovered := make([]bool, g.NumVertices())
	discovered[g.Root()] = true

	var (
		frames []frame
		stack  []pending
	)
	push := func(v graph.VertexID, parent, depth int) {
		kids := g.EnabledOutEdges(v, byElapsed)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, pending{edge: kids[i], parent: parent, depth: depth})
		}
	}
	push(g.Root(), -1, 1)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := len(frames)
		frames = append(frames, frame(p))
		v := g.Edge(p.edge).Target

		if mode == ModeFull {
			if onPath(g, frames, p.parent, v) {
				continue
			}
		} else {
			if discovered[v] {
				continue
			}
			discovered[v] = true
		}
		push(v, idx, p.depth+1)
	}
	return frames
}

// onPath reports whether v already occurs among the ancestors starting at frame i.
func onPath(g *graph.Graph, frames []frame, i int, v graph.VertexID) bool {
	if v == g.Root() {
		return true
	}
	for ; i >= 0; i = frames[i].parent {
		if g.Edge(frames[i].edge).Target == v {
			return true
		}
	}
	return false
}
