// Package render draws a bounded-depth forward trace of a trace graph.
//
// The walk is a depth-first traversal with an explicit stack. Children are
// pushed in reverse so they pop in discovery order. A per-depth counter of
// pending siblings decides whether a pipe is drawn for that column:
//
//	int
//	+ fib<5> (TemplateInstantiation)
//	| + fib<4> (TemplateInstantiation)
//	| ` fib<3> (Memoization)
//	` fib<3> (TemplateInstantiation)
package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"mdb/internal/graph"
)

// prettyPrintThreshold is the minimum content width worth wrapping for.
const prettyPrintThreshold = 10

var palette = [...]color.Attribute{
	color.FgRed,
	color.FgGreen,
	color.FgYellow,
	color.FgBlue,
	color.FgCyan,
}

// Options controls one rendering.
type Options struct {
	// Root is the edge whose target starts the trace; graph.NoEdge starts at
	// the graph root, which is printed without a kind.
	Root graph.EdgeID
	// MaxDepth stops descending below this depth; negative means unbounded.
	MaxDepth int
	// Width is the terminal width; labels wrap when it leaves enough room.
	Width int
	// Color enables ANSI colors for the tree connectors.
	Color bool
	// ByElapsed orders children by elapsed time, longest first.
	ByElapsed bool
	// ExpandAll descends into repeated vertices too, stopping only at cycles.
	ExpandAll bool
}

type pending struct {
	edge   graph.EdgeID
	depth  int
	parent int // index into visited, -1 for the render root
}

type visit struct {
	vertex graph.VertexID
	parent int
}

type renderer struct {
	w       *bufio.Writer
	opts    Options
	colors  []*color.Color
	counter []int
}

// Trace writes the forward trace of g below opts.Root to w. Vertices marked
// in discovered are printed as leaves; discovered may be nil and is never
// modified.
func Trace(w io.Writer, g *graph.Graph, opts Options, discovered []bool) error {
	r := &renderer{
		w:       bufio.NewWriter(w),
		opts:    opts,
		counter: make([]int, 1),
	}
	for _, attr := range palette {
		c := color.New(attr)
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		r.colors = append(r.colors, c)
	}

	seen := make([]bool, g.NumVertices())
	copy(seen, discovered)

	var visited []visit
	stack := []pending{{edge: opts.Root, depth: 0, parent: -1}}
	r.counter[0]++

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r.counter[p.depth]--

		vertex := g.Root()
		label := g.Vertex(vertex).Node.Text
		if p.edge != graph.NoEdge {
			e := g.Edge(p.edge)
			vertex = e.Target
			label = g.Vertex(vertex).Node.Text + " (" + e.Kind.String() + ")"
		}
		r.line(label, p.depth)

		idx := len(visited)
		visited = append(visited, visit{vertex: vertex, parent: p.parent})

		if opts.ExpandAll {
			if onPath(visited, p.parent, vertex) {
				continue
			}
		} else {
			if seen[vertex] {
				continue
			}
			seen[vertex] = true
		}

		if opts.MaxDepth >= 0 && opts.MaxDepth <= p.depth {
			continue
		}

		if len(r.counter) <= p.depth+1 {
			r.counter = append(r.counter, make([]int, p.depth+2-len(r.counter))...)
		}
		kids := g.EnabledOutEdges(vertex, opts.ByElapsed)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, pending{edge: kids[i], depth: p.depth + 1, parent: idx})
			r.counter[p.depth+1]++
		}
	}
	return r.w.Flush()
}

func onPath(visited []visit, i int, v graph.VertexID) bool {
	for ; i >= 0; i = visited[i].parent {
		if visited[i].vertex == v {
			return true
		}
	}
	return false
}

func (r *renderer) color(depth int) *color.Color {
	return r.colors[depth%len(r.colors)]
}

// prefix draws the connector columns of one output line.
func (r *renderer) prefix(depth int, mark bool) {
	if depth == 0 {
		return
	}
	for i := 1; i < depth; i++ {
		if r.counter[i] > 0 {
			r.w.WriteString(r.color(i).Sprint("| ")) //nolint:errcheck
		} else {
			r.w.WriteString("  ") //nolint:errcheck
		}
	}

	c := r.color(depth)
	switch {
	case mark && r.counter[depth] == 0:
		r.w.WriteString(c.Sprint("` ")) //nolint:errcheck
	case mark:
		r.w.WriteString(c.Sprint("+ ")) //nolint:errcheck
	case r.counter[depth] > 0:
		r.w.WriteString(c.Sprint("| ")) //nolint:errcheck
	default:
		r.w.WriteString("  ") //nolint:errcheck
	}
}

func (r *renderer) line(label string, depth int) {
	nonContent := 2 * depth
	width := r.opts.Width
	if width < prettyPrintThreshold || nonContent >= width-prettyPrintThreshold {
		r.prefix(depth, true)
		r.w.WriteString(label) //nolint:errcheck
		r.w.WriteByte('\n')    //nolint:errcheck
		return
	}
	for i, chunk := range Chunks(label, width-nonContent) {
		r.prefix(depth, i == 0)
		r.w.WriteString(chunk) //nolint:errcheck
		r.w.WriteByte('\n')    //nolint:errcheck
	}
}

// Chunks splits s into pieces no wider than width terminal cells. A rune
// wider than width gets a piece of its own. The result is never empty.
func Chunks(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	var (
		out []string
		sb  strings.Builder
		cur int
	)
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if cur > 0 && cur+rw > width {
			out = append(out, sb.String())
			sb.Reset()
			cur = 0
		}
		sb.WriteRune(r)
		cur += rw
	}
	if sb.Len() > 0 || len(out) == 0 {
		out = append(out, sb.String())
	}
	return out
}
