package tracelog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Sink stores or forwards recorded events. Write is called with the
// recorder's lock held and must not keep ev.
type Sink interface {
	Write(ev *Event)
	Close() error
}

// Recorder stamps events with a sequence number, the innermost open span
// and the shell line being executed, then hands them to its sinks.
// Spans must nest: a recorder follows one command at a time.
type Recorder struct {
	level Level
	sinks []Sink

	mu       sync.Mutex
	seq      uint64
	lastID   uint64
	open     []*Span
	line     string
	lineSpan uint64
}

// NewRecorder creates a recorder keeping events up to level.
func NewRecorder(level Level, sinks ...Sink) *Recorder {
	return &Recorder{level: level, sinks: sinks}
}

// Level returns the recorder's verbosity.
func (r *Recorder) Level() Level {
	if r == nil {
		return LevelOff
	}
	return r.level
}

// Enabled reports whether events at level are recorded.
func (r *Recorder) Enabled(level Level) bool {
	return r != nil && r.level.Includes(level)
}

// Span is an operation in progress. A nil *Span is inert.
type Span struct {
	r       *Recorder
	id      uint64
	level   Level
	name    string
	started time.Time
	cursor  *Cursor
}

// Begin opens a span nested in the innermost open one.
func (r *Recorder) Begin(level Level, name, detail string) *Span {
	if !r.Enabled(level) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begin(level, name, detail)
}

// Command opens the span of one shell line. Every event recorded before
// it ends is attributed to line.
func (r *Recorder) Command(line string) *Span {
	if !r.Enabled(LevelCommand) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.line = line
	s := r.begin(LevelCommand, "command", "")
	r.lineSpan = s.id
	return s
}

func (r *Recorder) begin(level Level, name, detail string) *Span {
	r.lastID++
	s := &Span{r: r, id: r.lastID, level: level, name: name, started: time.Now()}
	r.emit(&Event{Time: s.started, Kind: KindBegin, Level: level, Span: s.id, Name: name, Detail: detail})
	r.open = append(r.open, s)
	return s
}

// Point records an instant event.
func (r *Recorder) Point(level Level, name, detail string) {
	if !r.Enabled(level) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(&Event{Kind: KindPoint, Level: level, Name: name, Detail: detail})
}

// Step records a cursor move.
func (r *Recorder) Step(c Cursor) {
	if !r.Enabled(LevelStep) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(&Event{Kind: KindPoint, Level: LevelStep, Name: "step", Cursor: &c})
}

func (r *Recorder) emit(ev *Event) {
	r.seq++
	ev.Seq = r.seq
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	ev.Command = r.line
	ev.depth = len(r.open)
	if n := len(r.open); n > 0 {
		ev.Parent = r.open[n-1].id
	}
	for _, sink := range r.sinks {
		sink.Write(ev)
	}
}

// Ring returns the first ring sink, or nil.
func (r *Recorder) Ring() *Ring {
	if r == nil {
		return nil
	}
	for _, sink := range r.sinks {
		if ring, ok := sink.(*Ring); ok {
			return ring
		}
	}
	return nil
}

// Close closes every sink.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	for _, sink := range r.sinks {
		err = multierr.Append(err, sink.Close())
	}
	return err
}

// ID returns the span id, 0 for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// At records c as the cursor position reported when the span ends.
func (s *Span) At(c Cursor) *Span {
	if s != nil {
		s.cursor = &c
	}
	return s
}

// End closes the span and any span still open inside it, and returns
// the elapsed time. Ending a span twice records nothing.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	r := s.r
	r.mu.Lock()
	defer r.mu.Unlock()

	i := len(r.open) - 1
	for i >= 0 && r.open[i] != s {
		i--
	}
	if i < 0 {
		return 0
	}
	r.open = r.open[:i]

	elapsed := time.Since(s.started)
	r.emit(&Event{
		Kind:    KindEnd,
		Level:   s.level,
		Span:    s.id,
		Name:    s.name,
		Detail:  detail,
		Elapsed: elapsed,
		Cursor:  s.cursor,
	})
	if s.id == r.lineSpan {
		r.line, r.lineSpan = "", 0
	}
	return elapsed
}

type ctxKey struct{}

// WithRecorder attaches r to ctx.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the recorder attached to ctx, or nil.
func FromContext(ctx context.Context) *Recorder {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(ctxKey{}).(*Recorder)
	return r
}
