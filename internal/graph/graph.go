package graph

import (
	"errors"
	"fmt"
	"sort"
)

// VertexID addresses a vertex inside one Graph.
type VertexID int

// EdgeID addresses an edge inside one Graph; ids follow discovery order.
type EdgeID int

// NoEdge marks the absence of an edge, e.g. the debugger cursor at start.
const NoEdge EdgeID = -1

// ErrResultAlreadySet is returned when a second evaluation result is recorded.
var ErrResultAlreadySet = errors.New("evaluation result already set")

// Vertex is one distinct (label, location) occurrence.
type Vertex struct {
	ID       VertexID
	Node     Node // effective label, may be rewritten by filtering
	Recorded Node // label as built from the trace
	Location FileLocation
}

// Edge records that processing Source triggered Target.
type Edge struct {
	ID           EdgeID
	Source       VertexID
	Target       VertexID
	Kind         EventKind // effective kind, may be retagged by filtering
	Recorded     EventKind // kind as built from the trace
	PointOfEvent FileLocation
	Begin        float64 // seconds
	Elapsed      float64 // seconds, valid when Closed
	Closed       bool
	Enabled      bool
}

type vertexKey struct {
	node Node
	loc  FileLocation
}

// Graph is the trace of one evaluation. It is not safe for concurrent use.
type Graph struct {
	root     VertexID
	vertices []Vertex
	edges    []Edge
	out      [][]EdgeID
	in       [][]EdgeID
	index    map[vertexKey]VertexID

	result    Result
	hasResult bool
}

// New creates a graph whose root vertex stands for the evaluated expression.
// The root is not part of the dedup index, so it never gains incoming edges.
func New(root Node, loc FileLocation) *Graph {
	g := &Graph{index: make(map[vertexKey]VertexID)}
	g.root = g.appendVertex(root, loc)
	return g
}

func (g *Graph) appendVertex(n Node, loc FileLocation) VertexID {
	id := VertexID(len(g.vertices))
	g.vertices = append(g.vertices, Vertex{ID: id, Node: n, Recorded: n, Location: loc})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id
}

// Root returns the root vertex.
func (g *Graph) Root() VertexID { return g.root }

// AddVertex returns the vertex for (n, loc), creating it on first use.
func (g *Graph) AddVertex(n Node, loc FileLocation) VertexID {
	key := vertexKey{node: n, loc: loc}
	if id, ok := g.index[key]; ok {
		return id
	}
	id := g.appendVertex(n, loc)
	g.index[key] = id
	return id
}

// LookupVertex finds an existing vertex by its dedup key.
func (g *Graph) LookupVertex(n Node, loc FileLocation) (VertexID, bool) {
	id, ok := g.index[vertexKey{node: n, loc: loc}]
	return id, ok
}

// AddEdge appends a new open edge. Edges start enabled; filtering decides later.
func (g *Graph) AddEdge(from, to VertexID, kind EventKind, pointOfEvent FileLocation, begin float64) EdgeID {
	g.mustVertex(from)
	g.mustVertex(to)
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, Edge{
		ID:           id,
		Source:       from,
		Target:       to,
		Kind:         kind,
		Recorded:     kind,
		PointOfEvent: pointOfEvent,
		Begin:        begin,
		Enabled:      true,
	})
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
	return id
}

func (g *Graph) mustVertex(id VertexID) {
	if id < 0 || int(id) >= len(g.vertices) {
		panic(fmt.Sprintf("graph: vertex %d out of range", id))
	}
}

func (g *Graph) mustEdge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(g.edges) {
		panic(fmt.Sprintf("graph: edge %d out of range", id))
	}
	return &g.edges[id]
}

// NumVertices returns the vertex count including the root.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// NumEnabledEdges counts the edges left enabled by filtering.
func (g *Graph) NumEnabledEdges() int {
	n := 0
	for i := range g.edges {
		if g.edges[i].Enabled {
			n++
		}
	}
	return n
}

// Vertex returns a copy of the vertex.
func (g *Graph) Vertex(id VertexID) Vertex {
	g.mustVertex(id)
	return g.vertices[id]
}

// Edge returns a copy of the edge.
func (g *Graph) Edge(id EdgeID) Edge {
	return *g.mustEdge(id)
}

// Vertices returns all vertices in insertion order.
func (g *Graph) Vertices() []Vertex {
	out := make([]Vertex, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Edges returns all edges in discovery order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// OutEdges returns the outgoing edges of v in discovery order.
func (g *Graph) OutEdges(v VertexID) []EdgeID {
	g.mustVertex(v)
	out := make([]EdgeID, len(g.out[v]))
	copy(out, g.out[v])
	return out
}

// InEdges returns the incoming edges of v in discovery order.
func (g *Graph) InEdges(v VertexID) []EdgeID {
	g.mustVertex(v)
	out := make([]EdgeID, len(g.in[v]))
	copy(out, g.in[v])
	return out
}

// EnabledInDegree counts the enabled incoming edges of v.
func (g *Graph) EnabledInDegree(v VertexID) int {
	g.mustVertex(v)
	n := 0
	for _, e := range g.in[v] {
		if g.edges[e].Enabled {
			n++
		}
	}
	return n
}

// EnabledOutDegree counts the enabled outgoing edges of v.
func (g *Graph) EnabledOutDegree(v VertexID) int {
	g.mustVertex(v)
	n := 0
	for _, e := range g.out[v] {
		if g.edges[e].Enabled {
			n++
		}
	}
	return n
}

// EnabledOutEdges returns the enabled outgoing edges of v in discovery order,
// or ordered by elapsed time (longest first, ties in discovery order) when
// byElapsed is set.
func (g *Graph) EnabledOutEdges(v VertexID, byElapsed bool) []EdgeID {
	g.mustVertex(v)
	var out []EdgeID
	for _, e := range g.out[v] {
		if g.edges[e].Enabled {
			out = append(out, e)
		}
	}
	if byElapsed {
		sort.SliceStable(out, func(i, j int) bool {
			return g.edges[out[i]].Elapsed > g.edges[out[j]].Elapsed
		})
	}
	return out
}

// SetEnabled flips the enabled flag of an edge.
func (g *Graph) SetEnabled(id EdgeID, enabled bool) { g.mustEdge(id).Enabled = enabled }

// Enabled reports the enabled flag of an edge.
func (g *Graph) Enabled(id EdgeID) bool { return g.mustEdge(id).Enabled }

// Close records the elapsed time of an edge's event.
func (g *Graph) Close(id EdgeID, elapsed float64) {
	e := g.mustEdge(id)
	e.Elapsed = elapsed
	e.Closed = true
}

// SetKind changes the effective kind of an edge. The recorded kind is kept.
func (g *Graph) SetKind(id EdgeID, kind EventKind) { g.mustEdge(id).Kind = kind }

// SetNode changes the effective label of a vertex. The dedup index keeps
// using the recorded label.
func (g *Graph) SetNode(id VertexID, n Node) {
	g.mustVertex(id)
	g.vertices[id].Node = n
}

// SetResult records the evaluation result; it can be set only once.
func (g *Graph) SetResult(r Result) error {
	if g.hasResult {
		return ErrResultAlreadySet
	}
	g.result = r
	g.hasResult = true
	return nil
}

// Result returns the evaluation result, if recorded.
func (g *Graph) Result() (Result, bool) { return g.result, g.hasResult }

// Clone returns a deep copy that shares nothing with g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		root:      g.root,
		vertices:  make([]Vertex, len(g.vertices)),
		edges:     make([]Edge, len(g.edges)),
		out:       make([][]EdgeID, len(g.out)),
		in:        make([][]EdgeID, len(g.in)),
		index:     make(map[vertexKey]VertexID, len(g.index)),
		result:    g.result,
		hasResult: g.hasResult,
	}
	copy(c.vertices, g.vertices)
	copy(c.edges, g.edges)
	for i := range g.out {
		c.out[i] = append([]EdgeID(nil), g.out[i]...)
		c.in[i] = append([]EdgeID(nil), g.in[i]...)
	}
	for k, v := range g.index {
		c.index[k] = v
	}
	return c
}
