package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loc(name string, row int) FileLocation {
	return FileLocation{Name: name, Row: row, Col: 1}
}

func TestAddVertexDeduplicates(t *testing.T) {
	g := New(TypeNode("int"), loc("mdb-stdin", 3))

	a := g.AddVertex(TypeNode("Foo"), loc("a.hpp", 10))
	b := g.AddVertex(TypeNode("Foo"), loc("a.hpp", 10))
	if a != b {
		t.Fatalf("same key yielded %d and %d", a, b)
	}

	if c := g.AddVertex(TypeNode("Foo"), loc("a.hpp", 11)); c == a {
		t.Fatalf("different location reused vertex %d", a)
	}
	if d := g.AddVertex(CodeNode("Foo"), loc("a.hpp", 10)); d == a {
		t.Fatalf("different node kind reused vertex %d", a)
	}
	if got := g.NumVertices(); got != 4 {
		t.Fatalf("NumVertices = %d, want 4", got)
	}
}

func TestRootIsNotIndexed(t *testing.T) {
	rootLoc := loc("mdb-stdin", 1)
	g := New(TypeNode("Foo"), rootLoc)
	v := g.AddVertex(TypeNode("Foo"), rootLoc)
	if v == g.Root() {
		t.Fatalf("AddVertex returned the root vertex")
	}
}

func TestEdgesKeepDiscoveryOrder(t *testing.T) {
	g := New(TypeNode("r"), FileLocation{})
	a := g.AddVertex(TypeNode("A"), loc("x", 1))
	b := g.AddVertex(TypeNode("B"), loc("x", 2))

	e0 := g.AddEdge(g.Root(), a, TemplateInstantiation, loc("x", 5), 0.1)
	e1 := g.AddEdge(a, b, Memoization, loc("x", 6), 0.2)
	e2 := g.AddEdge(g.Root(), b, TemplateInstantiation, loc("x", 7), 0.3)

	if diff := cmp.Diff([]EdgeID{e0, e2}, g.OutEdges(g.Root())); diff != "" {
		t.Fatalf("root out edges mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]EdgeID{e1, e2}, g.InEdges(b)); diff != "" {
		t.Fatalf("in edges of B mismatch (-want +got):\n%s", diff)
	}
	edges := g.Edges()
	for i, e := range edges {
		if int(e.ID) != i {
			t.Fatalf("edge %d has id %d", i, e.ID)
		}
	}
}

func TestEnabledDegrees(t *testing.T) {
	g := New(TypeNode("r"), FileLocation{})
	a := g.AddVertex(TypeNode("A"), loc("x", 1))
	e0 := g.AddEdge(g.Root(), a, TemplateInstantiation, loc("x", 5), 0)
	g.AddEdge(g.Root(), a, Memoization, loc("x", 6), 0)

	if got := g.EnabledInDegree(a); got != 2 {
		t.Fatalf("EnabledInDegree = %d, want 2", got)
	}
	g.SetEnabled(e0, false)
	if got := g.EnabledInDegree(a); got != 1 {
		t.Fatalf("EnabledInDegree = %d, want 1", got)
	}
	if got := g.EnabledOutDegree(g.Root()); got != 1 {
		t.Fatalf("EnabledOutDegree = %d, want 1", got)
	}
}

func TestSetResultOnce(t *testing.T) {
	g := New(TypeNode("r"), FileLocation{})
	if _, ok := g.Result(); ok {
		t.Fatalf("fresh graph reports a result")
	}
	if err := g.SetResult(Result{Kind: ResultType, Text: "int"}); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	err := g.SetResult(Result{Kind: ResultType, Text: "char"})
	if !errors.Is(err, ErrResultAlreadySet) {
		t.Fatalf("second SetResult error = %v, want ErrResultAlreadySet", err)
	}
	if r, _ := g.Result(); r.Text != "int" {
		t.Fatalf("result overwritten: %q", r.Text)
	}
}

func TestRelabelKeepsRecorded(t *testing.T) {
	g := New(TypeNode("r"), FileLocation{})
	a := g.AddVertex(TypeNode("wrap<A>"), loc("x", 1))
	e := g.AddEdge(g.Root(), a, TemplateInstantiation, loc("x", 1), 0)

	g.SetNode(a, TypeNode("A"))
	g.SetKind(e, NonTemplateType)

	v := g.Vertex(a)
	if v.Node.Text != "A" || v.Recorded.Text != "wrap<A>" {
		t.Fatalf("vertex labels = %q/%q", v.Node.Text, v.Recorded.Text)
	}
	ed := g.Edge(e)
	if ed.Kind != NonTemplateType || ed.Recorded != TemplateInstantiation {
		t.Fatalf("edge kinds = %v/%v", ed.Kind, ed.Recorded)
	}
	if again := g.AddVertex(TypeNode("wrap<A>"), loc("x", 1)); again != a {
		t.Fatalf("dedup lost after relabel")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New(TypeNode("r"), FileLocation{})
	a := g.AddVertex(TypeNode("A"), loc("x", 1))
	e := g.AddEdge(g.Root(), a, TemplateInstantiation, loc("x", 1), 0)

	c := g.Clone()
	c.SetEnabled(e, false)
	c.AddEdge(a, c.AddVertex(TypeNode("B"), loc("x", 2)), TemplateInstantiation, loc("x", 2), 0)

	if !g.Enabled(e) {
		t.Fatalf("clone mutation leaked into original")
	}
	if g.NumEdges() != 1 || len(g.OutEdges(a)) != 0 {
		t.Fatalf("original grew: %d edges", g.NumEdges())
	}
}

func TestEventKindRoundTrip(t *testing.T) {
	for k := TemplateInstantiation; k <= NonTemplateType; k++ {
		got, err := ParseEventKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseEventKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseEventKind("Bogus"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
