// Package mdb is the metadebugger engine.
//
// An Engine owns the trace graph of the current evaluation. Evaluating an
// expression builds the graph from the evaluator's events, filters it down
// to what the expression triggered and lays the remaining edges out as a
// sequence of frames. The cursor moves along that sequence: position 0 is
// the start, 1..n are frames and n+1 is the finished state.
//
// The engine is not safe for concurrent use.
package mdb

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"mdb/internal/builder"
	"mdb/internal/graph"
	"mdb/internal/observ"
	"mdb/internal/render"
	"mdb/internal/source"
	"mdb/internal/tracelog"
)

// Options configures an Engine.
type Options struct {
	// WrapPrefix and WrapSuffix spell the wrapper type the evaluator uses to
	// force instantiation of the expression. Empty selects the defaults.
	WrapPrefix string
	WrapSuffix string
	// Recorder receives evaluation phases and cursor moves; nil disables it.
	Recorder *tracelog.Recorder
}

// Engine is a time-travel debugger over one evaluation at a time.
type Engine struct {
	src     source.Evaluator
	opts    Options
	rec     *tracelog.Recorder
	timings *observ.Timings

	g      *graph.Graph
	mode   Mode
	frames []frame
	pos    int
	bps    *Breakpoints
}

// New creates an engine that evaluates expressions with src.
func New(src source.Evaluator, opts Options) *Engine {
	if opts.WrapPrefix == "" {
		opts.WrapPrefix = DefaultWrapPrefix
		if opts.WrapSuffix == "" {
			opts.WrapSuffix = DefaultWrapSuffix
		}
	}
	return &Engine{
		src:     src,
		opts:    opts,
		rec:     opts.Recorder,
		timings: &observ.Timings{},
		bps:     NewBreakpoints(),
	}
}

// Evaluated reports whether a metaprogram is loaded.
func (e *Engine) Evaluated() bool { return e.g != nil }

// AtStart reports whether the cursor is before the first frame.
func (e *Engine) AtStart() bool { return e.g != nil && e.pos == 0 }

// Finished reports whether the cursor ran past the last frame.
func (e *Engine) Finished() bool { return e.g != nil && e.pos == len(e.frames)+1 }

// Mode returns the mode of the current evaluation.
func (e *Engine) Mode() Mode { return e.mode }

// Position returns the cursor position and the number of frames.
func (e *Engine) Position() (pos, total int) { return e.pos, len(e.frames) }

// Cursor describes the cursor position for the session log.
func (e *Engine) Cursor() tracelog.Cursor {
	c := tracelog.Cursor{Pos: e.pos, Total: len(e.frames)}
	if fr, ok := e.CurrentFrame(); ok {
		c.Frame = "#" + strconv.Itoa(int(fr.Edge)) + " " + fr.String()
	}
	return c
}

// RootLabel returns the evaluated expression, or "" before any evaluation.
func (e *Engine) RootLabel() string {
	if e.g == nil {
		return ""
	}
	return e.g.Vertex(e.g.Root()).Node.Text
}

// Result returns the evaluation result of the current metaprogram.
func (e *Engine) Result() (graph.Result, bool) {
	if e.g == nil {
		return graph.Result{}, false
	}
	return e.g.Result()
}

// Graph returns a copy of the current trace graph, or nil.
func (e *Engine) Graph() *graph.Graph {
	if e.g == nil {
		return nil
	}
	return e.g.Clone()
}

// Timings returns the phases of the last evaluation.
func (e *Engine) Timings() []observ.Phase { return e.timings.Phases() }

// TimingSummary returns Timings as a printable table.
func (e *Engine) TimingSummary() string { return e.timings.Summary() }

// Evaluate runs the evaluator on expr and loads the resulting trace. An
// empty expr evaluates the current expression again. On failure the
// current metaprogram is dropped.
func (e *Engine) Evaluate(ctx context.Context, expr string, mode Mode) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		if e.g == nil {
			return ErrNothingEvaluated
		}
		expr = e.RootLabel()
	}
	if e.src == nil {
		return ErrNoEvaluator
	}

	span := e.rec.Begin(tracelog.LevelPhase, "evaluate", expr+", "+mode.String())
	ctx = tracelog.WithRecorder(ctx, e.rec)

	e.timings.Reset()
	sw := e.timings.Start("compile")
	ev, err := e.src.Evaluate(ctx, expr)
	if err != nil {
		sw.Fail()
		e.drop()
		span.End("failed")
		return fmt.Errorf("evaluate %q: %w", expr, err)
	}
	sw.Stop(len(ev.Events), "events")
	if ev.Expr == "" {
		ev.Expr = expr
	}
	if err := e.load(ev, mode); err != nil {
		span.End("failed")
		return err
	}
	span.End("")
	return nil
}

// Load installs an already obtained evaluation, replacing the current one.
func (e *Engine) Load(ctx context.Context, ev *source.Evaluation, mode Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.timings.Reset()
	return e.load(ev, mode)
}

func (e *Engine) load(ev *source.Evaluation, mode Mode) error {
	span := e.rec.Begin(tracelog.LevelPhase, "build", "")
	sw := e.timings.Start("build")
	g, err := builder.New(ev.Expr, graph.FileLocation{}).ApplyAll(ev.Events)
	if err != nil {
		sw.Fail()
		span.End(err.Error())
		e.drop()
		return fmt.Errorf("build trace of %q: %w", ev.Expr, err)
	}
	span.End(sw.Stop(g.NumEdges(), "edges"))

	span = e.rec.Begin(tracelog.LevelPhase, "filter", "")
	sw = e.timings.Start("filter")
	Filter(g, FilterOptions{
		Injection:  ev.Injection,
		WrapPrefix: e.opts.WrapPrefix,
		WrapSuffix: e.opts.WrapSuffix,
	})
	span.End(sw.Stop(g.NumEnabledEdges(), "enabled"))

	span = e.rec.Begin(tracelog.LevelPhase, "linearize", "")
	sw = e.timings.Start("linearize")
	frames := linearize(g, mode)
	span.End(sw.Stop(len(frames), "frames"))

	e.g = g
	e.mode = mode
	e.frames = frames
	e.pos = 0
	e.bps.Clear()
	return nil
}

func (e *Engine) drop() {
	e.g = nil
	e.frames = nil
	e.pos = 0
	e.mode = ModeNormal
	e.bps.Clear()
}

func (e *Engine) atEndpoint(forward bool) bool {
	if forward {
		return e.pos == len(e.frames)+1
	}
	return e.pos == 0
}

// depth is the backtrace length at the cursor; endpoints have none.
func (e *Engine) depth() int {
	if e.pos == 0 || e.pos > len(e.frames) {
		return 0
	}
	return e.frames[e.pos-1].depth
}

func (e *Engine) step(forward bool) {
	if forward {
		e.pos++
	} else {
		e.pos--
	}
	if e.rec.Enabled(tracelog.LevelStep) {
		e.rec.Step(e.Cursor())
	}
}

func (e *Engine) outcome(count int) Outcome {
	switch {
	case e.Finished():
		if count > 0 {
			return Outcome{Report: ReportFinished}
		}
		return Outcome{}
	case e.AtStart():
		if count < 0 {
			return Outcome{Report: ReportBeginning}
		}
		return Outcome{}
	default:
		fr, _ := e.CurrentFrame()
		return Outcome{Report: ReportFrame, Frame: fr}
	}
}

// Step moves the cursor |count| frames, backwards when count is negative.
// With over set, every step skips the frames nested below the one it
// leaves. Endpoints are reported, not treated as errors.
func (e *Engine) Step(over bool, count int) (Outcome, error) {
	if e.g == nil {
		return Outcome{}, ErrNotEvaluated
	}
	forward := count >= 0
	n := abs(count)

	for i := 0; i < n && !e.atEndpoint(forward); i++ {
		if !over {
			e.step(forward)
			continue
		}
		// Endpoints count as top level, so stepping over from them stops
		// on the first top-level frame instead of running to the other end.
		recorded := max(e.depth(), 1)
		for {
			e.step(forward)
			if e.atEndpoint(forward) || e.depth() <= recorded {
				break
			}
		}
	}
	return e.outcome(count), nil
}

// Continue steps until a breakpoint matches or an endpoint is reached,
// |count| times, backwards when count is negative.
func (e *Engine) Continue(count int) (Outcome, error) {
	if e.g == nil {
		return Outcome{}, ErrNotEvaluated
	}
	if count == 0 {
		return Outcome{}, nil
	}
	forward := count > 0

	var hit *Breakpoint
	for i := 0; i < abs(count) && !e.atEndpoint(forward); i++ {
		hit = e.continueOnce(forward)
	}

	out := e.outcome(count)
	if out.Report == ReportFrame && hit != nil {
		cp := *hit
		out.Report = ReportBreakpoint
		out.Breakpoint = &cp
	}
	return out, nil
}

func (e *Engine) continueOnce(forward bool) *Breakpoint {
	for {
		e.step(forward)
		if e.atEndpoint(forward) {
			return nil
		}
		fr, _ := e.CurrentFrame()
		if bp, ok := e.bps.Match(fr.Label); ok {
			return bp
		}
	}
}

func (e *Engine) requireRunning() error {
	if e.g == nil {
		return ErrNotEvaluated
	}
	if e.Finished() {
		return ErrFinished
	}
	return nil
}

// AddBreakpoint registers a breakpoint on every vertex whose label matches
// pattern. The returned copy carries the number of enabled edges leading
// to matching vertices; a breakpoint matching nothing is kept but inert.
func (e *Engine) AddBreakpoint(pattern string) (Breakpoint, error) {
	if pattern == "" {
		return Breakpoint{}, ErrEmptyPattern
	}
	if err := e.requireRunning(); err != nil {
		return Breakpoint{}, err
	}
	bp, err := Compile(pattern)
	if err != nil {
		return Breakpoint{}, err
	}
	bp.Matches = e.countMatches(bp)
	e.bps.Add(bp)
	return *bp, nil
}

func (e *Engine) countMatches(bp *Breakpoint) int {
	n := 0
	for _, v := range e.g.Vertices() {
		if v.ID != e.g.Root() && bp.MatchString(v.Node.Text) {
			n += e.g.EnabledInDegree(v.ID)
		}
	}
	return n
}

// Breakpoints returns copies of the registered breakpoints.
func (e *Engine) Breakpoints() []Breakpoint { return e.bps.List() }

// CurrentFrame returns the frame under the cursor. It is false at both endpoints.
func (e *Engine) CurrentFrame() (Frame, bool) {
	if e.g == nil || e.pos == 0 || e.pos > len(e.frames) {
		return Frame{}, false
	}
	return makeFrame(e.g, e.frames[e.pos-1]), true
}

// Backtrace returns the open frames from the outermost one to the cursor.
// It is empty at the start.
func (e *Engine) Backtrace() ([]Frame, error) {
	if err := e.requireRunning(); err != nil {
		return nil, err
	}
	if e.pos == 0 {
		return nil, nil
	}
	var out []Frame
	for i := e.pos - 1; i >= 0; i = e.frames[i].parent {
		out = append(out, makeFrame(e.g, e.frames[i]))
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}

// ForwardtraceOptions controls Forwardtrace.
type ForwardtraceOptions struct {
	// Full expands subtrees already visited before the cursor.
	Full bool
	// MaxDepth bounds the rendered depth; negative means unbounded.
	MaxDepth int
	Width    int
	Color    bool
}

// Forwardtrace renders the subtree below the cursor, or the whole trace at
// the start.
func (e *Engine) Forwardtrace(w io.Writer, opts ForwardtraceOptions) error {
	if err := e.requireRunning(); err != nil {
		return err
	}
	root := graph.NoEdge
	if fr, ok := e.CurrentFrame(); ok {
		root = fr.Edge
	}
	var discovered []bool
	if !opts.Full {
		discovered = e.discovered()
	}
	return render.Trace(w, e.g, render.Options{
		Root:      root,
		MaxDepth:  opts.MaxDepth,
		Width:     opts.Width,
		Color:     opts.Color,
		ByElapsed: e.mode == ModeProfile,
		ExpandAll: e.mode == ModeFull,
	}, discovered)
}

// discovered marks the vertices already stepped through before the cursor.
func (e *Engine) discovered() []bool {
	seen := make([]bool, e.g.NumVertices())
	if e.pos == 0 {
		return seen
	}
	seen[e.g.Root()] = true
	for i := 0; i < e.pos-1; i++ {
		seen[e.g.Edge(e.frames[i].edge).Target] = true
	}
	return seen
}

// abs is the step count of n. math.MinInt has no positive counterpart and
// is clamped to math.MaxInt; no trace has that many frames.
func abs(n int) int {
	switch {
	case n == math.MinInt:
		return math.MaxInt
	case n < 0:
		return -n
	default:
		return n
	}
}
