package mdb

import (
	"strings"

	"mdb/internal/graph"
)

// Defaults describing how the evaluated expression is injected into the
// translation unit handed to the compiler.
const (
	DefaultInternalFile = "mdb-stdin"
	DefaultWrapPrefix   = "metashell::impl::wrap<"
	DefaultWrapSuffix   = ">"
)

// FilterOptions describes the synthetic wrapper around the evaluated expression.
type FilterOptions struct {
	// Injection is where the wrapper was instantiated; only its file and row matter.
	Injection  graph.FileLocation
	WrapPrefix string
	WrapSuffix string
}

func (o FilterOptions) isWrap(name string) bool {
	if o.WrapPrefix == "" || len(name) < len(o.WrapPrefix)+len(o.WrapSuffix) {
		return false
	}
	return strings.HasPrefix(name, o.WrapPrefix) && strings.HasSuffix(name, o.WrapSuffix)
}

func (o FilterOptions) unwrap(name string) string {
	return strings.TrimSpace(name[len(o.WrapPrefix) : len(name)-len(o.WrapSuffix)])
}

// isTemplateType reports whether name spells a template specialization.
func isTemplateType(name string) bool {
	name = strings.TrimSpace(name)
	return strings.HasSuffix(name, ">") && strings.Contains(name, "<")
}

func isInstantiation(k graph.EventKind) bool {
	return k == graph.TemplateInstantiation || k == graph.Memoization
}

type similarEdge struct {
	poe    graph.FileLocation
	kind   graph.EventKind
	target graph.VertexID
}

// Filter decides which edges of a freshly built graph are relevant to the
// evaluated expression. It only relabels vertices, retags edge kinds and
// flips enabled flags. Every decision is taken on the recorded labels and
// kinds, so filtering the same graph again yields the same result.
func Filter(g *graph.Graph, opts FilterOptions) {
	for _, e := range g.Edges() {
		g.SetEnabled(e.ID, false)
		g.SetKind(e.ID, e.Recorded)
	}
	for _, v := range g.Vertices() {
		g.SetNode(v.ID, v.Recorded)
	}

	var stack []graph.EdgeID
	for _, id := range g.OutEdges(g.Root()) {
		e := g.Edge(id)
		target := g.Vertex(e.Target).Recorded.Text
		if e.PointOfEvent.SameLine(opts.Injection) &&
			isInstantiation(e.Recorded) &&
			(!opts.isWrap(target) || e.Recorded != graph.Memoization) {
			g.SetEnabled(id, true)
			stack = append(stack, id)
		}
	}

	discovered := make([]bool, g.NumVertices())
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		v := g.Edge(id).Target
		if discovered[v] {
			continue
		}
		discovered[v] = true

		for _, out := range g.OutEdges(v) {
			if isInstantiation(g.Edge(out).Recorded) {
				g.SetEnabled(out, true)
				stack = append(stack, out)
			}
		}
	}

	for _, v := range g.Vertices() {
		if v.ID == g.Root() || v.Recorded.Kind != graph.NodeType || !opts.isWrap(v.Recorded.Text) {
			continue
		}
		inner := opts.unwrap(v.Recorded.Text)
		g.SetNode(v.ID, graph.TypeNode(inner))
		if !isTemplateType(inner) {
			for _, in := range g.InEdges(v.ID) {
				g.SetKind(in, graph.NonTemplateType)
			}
		}
	}

	// Disabled edges take part too: edges sharing a key share the enabled
	// decision, so only the first of a group can stay enabled.
	for _, v := range g.Vertices() {
		seen := make(map[similarEdge]bool)
		for _, id := range g.OutEdges(v.ID) {
			e := g.Edge(id)
			key := similarEdge{poe: e.PointOfEvent, kind: e.Kind, target: e.Target}
			if seen[key] {
				g.SetEnabled(id, false)
				continue
			}
			seen[key] = true
		}
	}
}
