package mdb

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mdb/internal/event"
	"mdb/internal/graph"
	"mdb/internal/source"
)

var (
	injection = graph.FileLocation{Name: DefaultInternalFile, Row: 2, Col: 1}
	inner     = graph.FileLocation{Name: "fib.hpp", Row: 10, Col: 3}
	defLoc    = graph.FileLocation{Name: "fib.hpp", Row: 4, Col: 8}
)

// traceBuilder records template events with increasing timestamps.
type traceBuilder struct {
	events []event.Event
	ts     float64
}

func (b *traceBuilder) begin(name string, memo bool, poe graph.FileLocation) *traceBuilder {
	b.ts++
	b.events = append(b.events, event.TemplateBegin(name, memo, poe, defLoc, b.ts))
	return b
}

func (b *traceBuilder) end() *traceBuilder {
	b.ts++
	b.events = append(b.events, event.TemplateEnd(b.ts))
	return b
}

func (b *traceBuilder) leaf(name string, memo bool, poe graph.FileLocation) *traceBuilder {
	return b.begin(name, memo, poe).end()
}

func (b *traceBuilder) evaluation(expr string) *source.Evaluation {
	events := append([]event.Event(nil), b.events...)
	events = append(events, event.EvaluationEnd(graph.Result{Kind: graph.ResultType, Text: expr}))
	return &source.Evaluation{Expr: expr, Injection: injection, Events: events}
}

func wrap(s string) string { return DefaultWrapPrefix + s + DefaultWrapSuffix }

// fibTrace is the trace of evaluating fib<4>::value with two memoized hits,
// a duplicated memoization event, a memoized wrapper and unrelated noise.
func fibTrace() *source.Evaluation {
	b := &traceBuilder{}
	b.leaf("std::string", false, graph.FileLocation{Name: DefaultInternalFile, Row: 1, Col: 1})
	b.begin(wrap("fib<4>"), false, injection)
	b.begin("fib<4>", false, inner)
	b.begin("fib<3>", false, inner)
	b.begin("fib<2>", false, inner)
	b.leaf("fib<1>", false, inner)
	b.leaf("fib<0>", false, inner)
	b.end()
	b.leaf("fib<1>", true, inner)
	b.end()
	b.leaf("fib<2>", true, inner)
	b.leaf("fib<2>", true, inner)
	b.end()
	b.end()
	b.leaf(wrap("fib<4>"), true, injection)
	return b.evaluation("int")
}

func loaded(t *testing.T, ev *source.Evaluation, mode Mode) *Engine {
	t.Helper()
	e := New(nil, Options{})
	if err := e.Load(context.Background(), ev, mode); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e
}

func frameStrings(e *Engine) []string {
	var out []string
	for i := range e.frames {
		out = append(out, strings.Repeat(" ", e.frames[i].depth-1)+makeFrame(e.g, e.frames[i]).String())
	}
	return out
}

func TestLinearizeNormal(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)
	want := []string{
		"fib<4> (TemplateInstantiation)",
		" fib<4> (TemplateInstantiation)",
		"  fib<3> (TemplateInstantiation)",
		"   fib<2> (TemplateInstantiation)",
		"    fib<1> (TemplateInstantiation)",
		"    fib<0> (TemplateInstantiation)",
		"   fib<1> (Memoization)",
		"  fib<2> (Memoization)",
	}
	if diff := cmp.Diff(want, frameStrings(e)); diff != "" {
		t.Fatalf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearizeFullExpandsRepeats(t *testing.T) {
	e := loaded(t, fibTrace(), ModeFull)
	got := frameStrings(e)
	want := []string{
		"  fib<2> (Memoization)",
		"   fib<1> (TemplateInstantiation)",
		"   fib<0> (TemplateInstantiation)",
	}
	if diff := cmp.Diff(want, got[len(got)-3:]); diff != "" {
		t.Fatalf("tail mismatch (-want +got):\n%s", diff)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(got))
	}
}

func TestWrapperScenario(t *testing.T) {
	b := &traceBuilder{}
	b.begin(wrap("Foo"), false, injection)
	b.leaf("Foo", false, inner)
	b.end()
	e := loaded(t, b.evaluation("Foo"), ModeNormal)

	g := e.Graph()
	root := g.OutEdges(g.Root())
	if len(root) != 1 || !g.Enabled(root[0]) {
		t.Fatalf("expected one enabled root edge, got %v", root)
	}
	target := g.Vertex(g.Edge(root[0]).Target)
	if target.Node.Text != "Foo" || g.Edge(root[0]).Kind != graph.NonTemplateType {
		t.Fatalf("root edge not unwrapped: %q (%s)", target.Node.Text, g.Edge(root[0]).Kind)
	}

	out, err := e.Continue(1)
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if out.Report != ReportFinished {
		t.Fatalf("expected finished, got %s", out.Report)
	}
	if res, ok := e.Result(); !ok || res.Text != "Foo" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestFilterIdempotent(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)
	once := e.Graph()
	twice := e.Graph()
	opts := FilterOptions{Injection: injection, WrapPrefix: DefaultWrapPrefix, WrapSuffix: DefaultWrapSuffix}
	Filter(twice, opts)
	Filter(twice, opts)
	if diff := cmp.Diff(once.Edges(), twice.Edges()); diff != "" {
		t.Fatalf("edges differ (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(once.Vertices(), twice.Vertices()); diff != "" {
		t.Fatalf("vertices differ (-once +twice):\n%s", diff)
	}
}

func TestFilterKeepsOneOfSimilarEdges(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)
	g := e.Graph()

	var fib4 graph.VertexID = -1
	for _, v := range g.Vertices() {
		if v.Recorded.Text == "fib<4>" {
			fib4 = v.ID
		}
	}
	if fib4 < 0 {
		t.Fatalf("fib<4> vertex not found")
	}
	outs := g.OutEdges(fib4)
	if len(outs) != 3 {
		t.Fatalf("expected 3 out edges of fib<4>, got %d", len(outs))
	}
	got := []bool{g.Enabled(outs[0]), g.Enabled(outs[1]), g.Enabled(outs[2])}
	if diff := cmp.Diff([]bool{true, true, false}, got); diff != "" {
		t.Fatalf("enabled flags mismatch (-want +got):\n%s", diff)
	}
	if g.EnabledOutDegree(fib4) != 2 {
		t.Fatalf("EnabledOutDegree = %d, want 2", g.EnabledOutDegree(fib4))
	}
}

func TestStepMonotonic(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)
	_, total := e.Position()
	for pos := 1; pos <= total; pos++ {
		e.pos = pos
		before, _ := e.CurrentFrame()
		if _, err := e.Step(false, 1); err != nil {
			t.Fatalf("step: %v", err)
		}
		if _, err := e.Step(false, -1); err != nil {
			t.Fatalf("step back: %v", err)
		}
		after, _ := e.CurrentFrame()
		if before != after {
			t.Fatalf("pos %d: %v became %v", pos, before, after)
		}
	}
}

func TestStepReports(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)

	out, _ := e.Step(false, -1)
	if out.Report != ReportBeginning {
		t.Fatalf("backward from start: %s", out.Report)
	}
	out, _ = e.Step(false, 3)
	if out.Report != ReportFrame || out.Frame.Label != "fib<3>" || out.Frame.Depth != 3 {
		t.Fatalf("unexpected frame %+v", out)
	}
	out, _ = e.Step(false, 100)
	if out.Report != ReportFinished || !e.Finished() {
		t.Fatalf("expected finished, got %s", out.Report)
	}
	out, _ = e.Step(false, 0)
	if out.Report != ReportNone {
		t.Fatalf("zero step at the end: %s", out.Report)
	}
	out, _ = e.Step(false, -1)
	if out.Report != ReportFrame || out.Frame.String() != "fib<2> (Memoization)" {
		t.Fatalf("unexpected frame %+v", out)
	}
}

func TestStepOver(t *testing.T) {
	tests := []struct {
		name  string
		from  int
		count int
		want  int
	}{
		{"skips nested frames", 3, 1, 8},
		{"sibling subtree", 4, 1, 7},
		{"leaf behaves like step", 5, 1, 6},
		{"outermost runs to the end", 2, 1, 9},
		{"from start stops on first top level frame", 0, 1, 1},
		{"backward skips previous subtree", 8, -1, 3},
		{"backward from end lands on top level", 9, -1, 1},
		{"two at once", 4, 2, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := loaded(t, fibTrace(), ModeNormal)
			e.pos = tt.from
			before := e.depth()
			if _, err := e.Step(true, tt.count); err != nil {
				t.Fatalf("step over: %v", err)
			}
			if e.pos != tt.want {
				t.Fatalf("position = %d, want %d", e.pos, tt.want)
			}
			if tt.from != 0 && tt.from != 9 && !e.atEndpoint(tt.count > 0) && e.depth() > before {
				t.Fatalf("depth grew from %d to %d", before, e.depth())
			}
		})
	}
}

func TestContinueBreakpoints(t *testing.T) {
	b := &traceBuilder{}
	b.begin(wrap("Baz"), false, injection)
	b.leaf("Foo", false, inner)
	b.leaf("Bar", false, inner)
	b.leaf("Foo", true, inner)
	b.end()
	e := loaded(t, b.evaluation("Baz"), ModeNormal)

	for _, pattern := range []string{"Foo", "Bar"} {
		if _, err := e.AddBreakpoint(pattern); err != nil {
			t.Fatalf("rbreak %s: %v", pattern, err)
		}
	}

	steps := []struct {
		count   int
		report  Report
		pattern string
		frame   string
	}{
		{1, ReportBreakpoint, "Foo", "Foo (TemplateInstantiation)"},
		{1, ReportBreakpoint, "Bar", "Bar (TemplateInstantiation)"},
		{1, ReportBreakpoint, "Foo", "Foo (Memoization)"},
		{-1, ReportBreakpoint, "Bar", "Bar (TemplateInstantiation)"},
		{2, ReportFinished, "", ""},
		{-3, ReportBreakpoint, "Foo", "Foo (TemplateInstantiation)"},
		{-1, ReportBeginning, "", ""},
	}
	for i, s := range steps {
		out, err := e.Continue(s.count)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if out.Report != s.report {
			t.Fatalf("step %d: report %s, want %s", i, out.Report, s.report)
		}
		if s.report != ReportBreakpoint {
			continue
		}
		if out.Breakpoint.Pattern != s.pattern || out.Frame.String() != s.frame {
			t.Fatalf("step %d: stopped at %s by %q", i, out.Frame, out.Breakpoint.Pattern)
		}
	}
}

func TestBreakpointMatchCount(t *testing.T) {
	tests := []struct {
		pattern string
		want    int
	}{
		{"fib<2>", 2},
		{"fib<1>", 2},
		{"fib<4>", 2},
		{"fib", 8},
		{"^fib<[01]>$", 3},
		{"string", 0},
	}
	for _, tt := range tests {
		e := loaded(t, fibTrace(), ModeNormal)
		bp, err := e.AddBreakpoint(tt.pattern)
		if err != nil {
			t.Fatalf("rbreak %q: %v", tt.pattern, err)
		}
		if bp.Matches != tt.want {
			t.Fatalf("rbreak %q matched %d, want %d", tt.pattern, bp.Matches, tt.want)
		}
		if bp.Inert() != (tt.want == 0) {
			t.Fatalf("rbreak %q inert = %v", tt.pattern, bp.Inert())
		}
	}
}

func TestBreakpointErrors(t *testing.T) {
	e := New(nil, Options{})
	if _, err := e.AddBreakpoint("x"); !errors.Is(err, ErrNotEvaluated) {
		t.Fatalf("expected ErrNotEvaluated, got %v", err)
	}
	e = loaded(t, fibTrace(), ModeNormal)
	if _, err := e.AddBreakpoint(""); !errors.Is(err, ErrEmptyPattern) {
		t.Fatalf("expected ErrEmptyPattern, got %v", err)
	}
	_, err := e.AddBreakpoint("fib<(")
	var perr *PatternError
	if !errors.As(err, &perr) || perr.Pattern != "fib<(" {
		t.Fatalf("expected PatternError, got %v", err)
	}
	if len(e.Breakpoints()) != 0 {
		t.Fatal("invalid pattern must not register a breakpoint")
	}
	if _, err := e.Step(false, 100); err != nil {
		t.Fatalf("step: %v", err)
	}
	if _, err := e.AddBreakpoint("fib"); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
}

func TestBacktrace(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)
	bt, err := e.Backtrace()
	if err != nil || len(bt) != 0 {
		t.Fatalf("backtrace at start = %v, %v", bt, err)
	}
	if _, err := e.Step(false, 6); err != nil {
		t.Fatal(err)
	}
	bt, err = e.Backtrace()
	if err != nil {
		t.Fatalf("backtrace: %v", err)
	}
	var got []string
	for _, f := range bt {
		got = append(got, f.Label)
	}
	want := []string{"fib<4>", "fib<4>", "fib<3>", "fib<2>", "fib<0>"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("backtrace mismatch (-want +got):\n%s", diff)
	}
	if len(bt) != e.depth() {
		t.Fatalf("backtrace length %d != depth %d", len(bt), e.depth())
	}
}

func TestForwardtrace(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)
	var buf bytes.Buffer
	if err := e.Forwardtrace(&buf, ForwardtraceOptions{MaxDepth: -1}); err != nil {
		t.Fatalf("forwardtrace: %v", err)
	}
	want := strings.Join([]string{
		"int",
		"` fib<4> (TemplateInstantiation)",
		"  ` fib<4> (TemplateInstantiation)",
		"    + fib<3> (TemplateInstantiation)",
		"    | + fib<2> (TemplateInstantiation)",
		"    | | + fib<1> (TemplateInstantiation)",
		"    | | ` fib<0> (TemplateInstantiation)",
		"    | ` fib<1> (Memoization)",
		"    ` fib<2> (Memoization)",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("forwardtrace mismatch (-want +got):\n%s", diff)
	}

	if _, err := e.Step(false, 8); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := e.Forwardtrace(&buf, ForwardtraceOptions{MaxDepth: -1}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "fib<2> (Memoization)\n" {
		t.Fatalf("memoized frame should render as a leaf, got:\n%s", buf.String())
	}
	buf.Reset()
	if err := e.Forwardtrace(&buf, ForwardtraceOptions{Full: true, MaxDepth: -1}); err != nil {
		t.Fatal(err)
	}
	wantFull := "fib<2> (Memoization)\n+ fib<1> (TemplateInstantiation)\n` fib<0> (TemplateInstantiation)\n"
	if buf.String() != wantFull {
		t.Fatalf("full forwardtrace mismatch:\n%s", buf.String())
	}
}

func TestEvaluate(t *testing.T) {
	var asked []string
	fail := false
	src := source.EvaluatorFunc(func(_ context.Context, expr string) (*source.Evaluation, error) {
		asked = append(asked, expr)
		if fail {
			return nil, errors.New("compiler crashed")
		}
		return fibTrace(), nil
	})
	e := New(src, Options{})

	if err := e.Evaluate(context.Background(), "  ", ModeNormal); !errors.Is(err, ErrNothingEvaluated) {
		t.Fatalf("expected ErrNothingEvaluated, got %v", err)
	}
	if _, err := e.Step(false, 1); !errors.Is(err, ErrNotEvaluated) {
		t.Fatalf("expected ErrNotEvaluated, got %v", err)
	}
	if err := e.Evaluate(context.Background(), "int", ModeNormal); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := e.AddBreakpoint("fib"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Step(false, 2); err != nil {
		t.Fatal(err)
	}

	if err := e.Evaluate(context.Background(), "", ModeProfile); err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if !e.AtStart() || len(e.Breakpoints()) != 0 || e.Mode() != ModeProfile {
		t.Fatal("re-evaluation must reset cursor and breakpoints")
	}
	if diff := cmp.Diff([]string{"int", "int"}, asked); diff != "" {
		t.Fatalf("evaluated expressions (-want +got):\n%s", diff)
	}
	if phases := e.Timings(); len(phases) != 4 {
		t.Fatalf("expected 4 timed phases, got %+v", phases)
	}

	fail = true
	if err := e.Evaluate(context.Background(), "long", ModeNormal); err == nil {
		t.Fatal("expected evaluation failure")
	}
	if e.Evaluated() {
		t.Fatal("failed evaluation must drop the metaprogram")
	}
}

func TestLoadMalformed(t *testing.T) {
	ev := fibTrace()
	ev.Events = ev.Events[:len(ev.Events)-2]
	e := New(nil, Options{})
	if err := e.Load(context.Background(), ev, ModeNormal); err == nil {
		t.Fatal("expected malformed trace error")
	}
	if e.Evaluated() {
		t.Fatal("malformed trace must not be loaded")
	}
}

func TestProfileOrdersByElapsed(t *testing.T) {
	b := &traceBuilder{}
	b.begin(wrap("Top<1>"), false, injection)
	b.begin("Quick<1>", false, inner)
	b.end()
	b.begin("Slow<1>", false, inner)
	b.ts += 10
	b.end()
	b.end()
	e := loaded(t, b.evaluation("Top<1>"), ModeProfile)
	got := frameStrings(e)
	want := []string{
		"Top<1> (TemplateInstantiation)",
		" Slow<1> (TemplateInstantiation)",
		" Quick<1> (TemplateInstantiation)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("profile frames (-want +got):\n%s", diff)
	}
}

func TestExtremeCounts(t *testing.T) {
	e := loaded(t, fibTrace(), ModeNormal)
	out, err := e.Step(false, math.MaxInt)
	if err != nil || out.Report != ReportFinished {
		t.Fatalf("step max = %+v, %v", out, err)
	}
	out, err = e.Step(false, math.MinInt)
	if err != nil || out.Report != ReportBeginning {
		t.Fatalf("step min = %+v, %v", out, err)
	}
	out, err = e.Continue(math.MaxInt)
	if err != nil || out.Report != ReportFinished {
		t.Fatalf("continue max = %+v, %v", out, err)
	}
	out, err = e.Continue(math.MinInt)
	if err != nil || out.Report != ReportBeginning {
		t.Fatalf("continue min = %+v, %v", out, err)
	}
}

func TestEvaluateWithoutEvaluator(t *testing.T) {
	e := New(nil, Options{})
	if err := e.Evaluate(context.Background(), "int", ModeNormal); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
	e = loaded(t, fibTrace(), ModeNormal)
	if err := e.Evaluate(context.Background(), "", ModeNormal); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("re-evaluation without evaluator: %v", err)
	}
	if !e.Evaluated() {
		t.Fatal("a refused evaluation must keep the loaded metaprogram")
	}
}
