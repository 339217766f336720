// Package builder assembles a trace graph from an ordered stream of events.
//
// Begin events push the edge they create onto an open-scope stack so that
// nested events attach below it; end events pop it again and record the
// elapsed time. Leaf events attach one edge to the current scope without
// pushing.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"mdb/internal/event"
	"mdb/internal/graph"
)

// ErrMalformedTrace wraps every structural problem found in an event stream.
var ErrMalformedTrace = errors.New("malformed trace")

// Builder incrementally populates a graph. A Builder is single-use: once
// Graph returns successfully the graph belongs to the caller.
type Builder struct {
	g      *graph.Graph
	stack  []graph.EdgeID
	lastTS float64
	seenTS bool
	ended  bool
}

// New creates a builder whose root vertex is the evaluated expression.
func New(root string, rootLocation graph.FileLocation) *Builder {
	return &Builder{g: graph.New(graph.TypeNode(root), rootLocation)}
}

// Depth returns the number of open scopes.
func (b *Builder) Depth() int { return len(b.stack) }

// Graph finalizes the build. It fails when scopes are still open or the
// evaluation end event is missing.
func (b *Builder) Graph() (*graph.Graph, error) {
	if len(b.stack) > 0 {
		top := b.g.Edge(b.stack[len(b.stack)-1])
		return nil, fmt.Errorf("%w: %d unterminated scope(s), innermost %s of %q",
			ErrMalformedTrace, len(b.stack), top.Kind, b.g.Vertex(top.Target).Node.Text)
	}
	if !b.ended {
		return nil, fmt.Errorf("%w: missing evaluation end event", ErrMalformedTrace)
	}
	return b.g, nil
}

// Apply dispatches one event to its handler.
func (b *Builder) Apply(ev event.Event) error {
	switch ev.Kind {
	case event.KindTemplateBegin:
		kind := graph.TemplateInstantiation
		if ev.Memoization {
			kind = graph.Memoization
		}
		return b.TemplateBegin(kind, ev.Name, ev.PointOfEvent, ev.SourceLocation, ev.Timestamp)
	case event.KindTemplateEnd:
		return b.TemplateEnd(ev.Timestamp)
	case event.KindMacroExpansionBegin:
		return b.MacroExpansionBegin(ev.Name, macroArgs(ev), ev.PointOfEvent, ev.SourceLocation, ev.Timestamp)
	case event.KindRescanning:
		return b.Rescanning(ev.Code, ev.Timestamp)
	case event.KindExpandedCode:
		return b.ExpandedCode(ev.Code, ev.PointOfEvent, ev.Timestamp)
	case event.KindMacroExpansionEnd:
		return b.MacroExpansionEnd(ev.Timestamp)
	case event.KindIncludeBegin:
		return b.IncludeBegin(ev.Name, ev.System, ev.PointOfEvent, ev.Timestamp)
	case event.KindIncludeEnd:
		return b.IncludeEnd(ev.Timestamp)
	case event.KindDefine:
		return b.Define(ev.Name, macroArgs(ev), ev.Code, ev.PointOfEvent, ev.Timestamp)
	case event.KindUndefine:
		return b.Undefine(ev.Name, ev.PointOfEvent, ev.Timestamp)
	case event.KindPPConditionBegin:
		return b.PPConditionBegin(ev.Code, ev.PointOfEvent, ev.Timestamp)
	case event.KindPPConditionEnd:
		return b.PPConditionEnd(ev.Result, ev.Timestamp)
	case event.KindPPElse:
		return b.PPElse(ev.PointOfEvent, ev.Timestamp)
	case event.KindPPEndif:
		return b.PPEndif(ev.PointOfEvent, ev.Timestamp)
	case event.KindErrorDirective:
		return b.ErrorDirective(ev.Code, ev.PointOfEvent, ev.Timestamp)
	case event.KindLineDirective:
		return b.LineDirective(ev.Code, ev.PointOfEvent, ev.SourceLocation, ev.Timestamp)
	case event.KindTokenSkipping:
		return b.TokenSkipping(ev.Code, ev.PointOfEvent, ev.Timestamp)
	case event.KindTokenGeneration:
		return b.TokenGeneration(ev.Code, ev.PointOfEvent, ev.SourceLocation, ev.Timestamp)
	case event.KindEvaluationEnd:
		res, err := ev.Outcome()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedTrace, err)
		}
		return b.EvaluationEnd(res)
	default:
		return fmt.Errorf("%w: unknown event kind %d", ErrMalformedTrace, ev.Kind)
	}
}

// ApplyAll feeds events in order and finalizes the graph.
func (b *Builder) ApplyAll(events []event.Event) (*graph.Graph, error) {
	for i, ev := range events {
		if err := b.Apply(ev); err != nil {
			return nil, fmt.Errorf("event #%d (%s): %w", i, ev.Kind, err)
		}
	}
	return b.Graph()
}

func macroArgs(ev event.Event) []string {
	if !ev.FunctionLike && len(ev.Args) == 0 {
		return nil
	}
	if ev.Args == nil {
		return []string{}
	}
	return ev.Args
}

func (b *Builder) tick(ts float64) error {
	if b.ended {
		return fmt.Errorf("%w: event after evaluation end", ErrMalformedTrace)
	}
	if b.seenTS && ts < b.lastTS {
		return fmt.Errorf("%w: timestamp %.6f goes back before %.6f", ErrMalformedTrace, ts, b.lastTS)
	}
	b.lastTS = ts
	b.seenTS = true
	return nil
}

// top returns the vertex new events attach to.
func (b *Builder) top() graph.VertexID {
	if len(b.stack) == 0 {
		return b.g.Root()
	}
	return b.g.Edge(b.stack[len(b.stack)-1]).Target
}

func (b *Builder) begin(node graph.Node, loc graph.FileLocation, kind graph.EventKind, poe graph.FileLocation, ts float64) {
	v := b.g.AddVertex(node, loc)
	e := b.g.AddEdge(b.top(), v, kind, poe, ts)
	b.stack = append(b.stack, e)
}

func (b *Builder) leaf(node graph.Node, loc graph.FileLocation, kind graph.EventKind, poe graph.FileLocation, ts float64) {
	v := b.g.AddVertex(node, loc)
	b.g.AddEdge(b.top(), v, kind, poe, ts)
}

// peek returns the innermost open edge if its kind satisfies accept.
func (b *Builder) peek(what string, accept func(graph.EventKind) bool) (graph.Edge, error) {
	if len(b.stack) == 0 {
		return graph.Edge{}, fmt.Errorf("%w: %s without an open scope", ErrMalformedTrace, what)
	}
	top := b.g.Edge(b.stack[len(b.stack)-1])
	if !accept(top.Kind) {
		return graph.Edge{}, fmt.Errorf("%w: %s does not match open %s scope", ErrMalformedTrace, what, top.Kind)
	}
	return top, nil
}

// end closes the innermost scope.
func (b *Builder) end(what string, ts float64, accept func(graph.EventKind) bool) error {
	top, err := b.peek(what, accept)
	if err != nil {
		return err
	}
	b.g.Close(top.ID, ts-top.Begin)
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

func isKind(kinds ...graph.EventKind) func(graph.EventKind) bool {
	return func(k graph.EventKind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}

// TemplateBegin opens a template instantiation or memoization scope.
func (b *Builder) TemplateBegin(kind graph.EventKind, typ string, poe, src graph.FileLocation, ts float64) error {
	if !kind.IsTemplate() {
		return fmt.Errorf("%w: %s is not a template event kind", ErrMalformedTrace, kind)
	}
	if err := b.tick(ts); err != nil {
		return err
	}
	b.begin(graph.TypeNode(typ), src, kind, poe, ts)
	return nil
}

// TemplateEnd closes the innermost template scope.
func (b *Builder) TemplateEnd(ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	return b.end("template end", ts, graph.EventKind.IsTemplate)
}

// MacroExpansionBegin opens a macro expansion scope. A nil args slice means
// an object-like macro; an empty one a function-like macro called with ().
func (b *Builder) MacroExpansionBegin(name string, args []string, poe, src graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	call := name
	if args != nil {
		call += "(" + strings.Join(args, ",") + ")"
	}
	b.begin(graph.CodeNode(call), src, graph.MacroExpansion, poe, ts)
	return nil
}

// Rescanning opens the rescanning scope nested in the current macro expansion.
func (b *Builder) Rescanning(code string, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	top, err := b.peek("rescanning", isKind(graph.MacroExpansion))
	if err != nil {
		return err
	}
	b.begin(graph.CodeNode(code), top.PointOfEvent, graph.Rescanning, top.PointOfEvent, ts)
	return nil
}

// ExpandedCode records the code a macro expanded to.
func (b *Builder) ExpandedCode(code string, poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.CodeNode(code), poe, graph.ExpandedCode, poe, ts)
	return nil
}

// MacroExpansionEnd closes the rescanning scope and the expansion it wraps.
func (b *Builder) MacroExpansionEnd(ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	if len(b.stack) < 2 {
		return fmt.Errorf("%w: macro expansion end needs 2 open scopes, have %d", ErrMalformedTrace, len(b.stack))
	}
	if _, err := b.peek("macro expansion end", isKind(graph.Rescanning)); err != nil {
		return err
	}
	under := b.g.Edge(b.stack[len(b.stack)-2])
	if under.Kind != graph.MacroExpansion {
		return fmt.Errorf("%w: rescanning is nested in %s instead of a macro expansion", ErrMalformedTrace, under.Kind)
	}
	if err := b.end("macro expansion end", ts, isKind(graph.Rescanning)); err != nil {
		return err
	}
	return b.end("macro expansion end", ts, isKind(graph.MacroExpansion))
}

// IncludeBegin opens an include scope. The target vertex sits at the first
// line of the included file.
func (b *Builder) IncludeBegin(path string, system bool, poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	kind := graph.QuotedInclude
	if system {
		kind = graph.SystemInclude
	}
	b.begin(graph.PathNode(path), graph.FileLocation{Name: path, Row: 1, Col: 1}, kind, poe, ts)
	return nil
}

// IncludeEnd closes the innermost include scope.
func (b *Builder) IncludeEnd(ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	return b.end("include end", ts, graph.EventKind.IsInclude)
}

// Define records a macro definition.
func (b *Builder) Define(name string, args []string, body string, poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	sig := name
	if args != nil {
		sig += "(" + strings.Join(args, ", ") + ")"
	}
	b.leaf(graph.CodeNode(sig+" "+body), poe, graph.MacroDefinition, poe, ts)
	return nil
}

// Undefine records a macro deletion.
func (b *Builder) Undefine(name string, poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.CodeNode(name), poe, graph.MacroDeletion, poe, ts)
	return nil
}

// PPConditionBegin opens a preprocessing condition scope.
func (b *Builder) PPConditionBegin(expr string, poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.begin(graph.CodeNode(expr), poe, graph.PreprocessingCondition, poe, ts)
	return nil
}

// PPConditionEnd closes the condition scope and records its outcome as a
// leaf below the condition.
func (b *Builder) PPConditionEnd(result bool, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	top, err := b.peek("preprocessing condition end", isKind(graph.PreprocessingCondition))
	if err != nil {
		return err
	}
	b.g.Close(top.ID, ts-top.Begin)
	marker := "false"
	if result {
		marker = "true"
	}
	v := b.g.AddVertex(graph.MarkerNode(marker), top.PointOfEvent)
	b.g.AddEdge(top.Target, v, graph.PreprocessingConditionResult, top.PointOfEvent, ts)
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// PPElse records an #else.
func (b *Builder) PPElse(poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.MarkerNode("#else"), poe, graph.PreprocessingElse, poe, ts)
	return nil
}

// PPEndif records an #endif.
func (b *Builder) PPEndif(poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.MarkerNode("#endif"), poe, graph.PreprocessingEndif, poe, ts)
	return nil
}

// ErrorDirective records an #error.
func (b *Builder) ErrorDirective(msg string, poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.CodeNode("#error "+msg), poe, graph.ErrorDirective, poe, ts)
	return nil
}

// LineDirective records a #line.
func (b *Builder) LineDirective(arg string, poe, src graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.CodeNode("#line "+arg), src, graph.LineDirective, poe, ts)
	return nil
}

// TokenSkipping records a token skipped by the preprocessor.
func (b *Builder) TokenSkipping(tok string, poe graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.TokenNode(tok), poe, graph.SkippedToken, poe, ts)
	return nil
}

// TokenGeneration records a token produced by the preprocessor.
func (b *Builder) TokenGeneration(tok string, poe, src graph.FileLocation, ts float64) error {
	if err := b.tick(ts); err != nil {
		return err
	}
	b.leaf(graph.TokenNode(tok), src, graph.GeneratedToken, poe, ts)
	return nil
}

// EvaluationEnd records the final result. A second call is malformed.
func (b *Builder) EvaluationEnd(res graph.Result) error {
	if b.ended {
		return fmt.Errorf("%w: duplicate evaluation end", ErrMalformedTrace)
	}
	if err := b.g.SetResult(res); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedTrace, err)
	}
	b.ended = true
	return nil
}
