package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"mdb/internal/event"
	"mdb/internal/tracefile"
)

// ErrNoInjection is returned when a replayed trace does not say where the
// expression was injected; nothing in it could be told apart from the prelude.
var ErrNoInjection = errors.New("trace file records no injection location")

// FileEvaluator replays a recorded trace file. The file is read once, on the
// first evaluation.
type FileEvaluator struct {
	path string

	once sync.Once
	file *tracefile.File
	err  error
}

// NewFileEvaluator returns an evaluator replaying the trace at path.
func NewFileEvaluator(path string) *FileEvaluator {
	return &FileEvaluator{path: path}
}

func (f *FileEvaluator) load() (*tracefile.File, error) {
	f.once.Do(func() {
		f.file, f.err = tracefile.ReadFile(f.path)
	})
	return f.file, f.err
}

// Header returns the header of the replayed file.
func (f *FileEvaluator) Header() (tracefile.Header, error) {
	file, err := f.load()
	if err != nil {
		return tracefile.Header{}, err
	}
	return file.Header, nil
}

// Evaluate returns the recorded events. A file whose header names an
// expression only answers for that expression, modulo whitespace and
// Unicode normalisation. Files without an injection location are refused.
func (f *FileEvaluator) Evaluate(ctx context.Context, expr string) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := f.load()
	if err != nil {
		return nil, err
	}
	if file.Header.Injection.Name == "" {
		return nil, fmt.Errorf("%s: %w", f.path, ErrNoInjection)
	}
	if file.Header.Expr != "" && squash(expr) != squash(file.Header.Expr) {
		return nil, fmt.Errorf("%w: %q (%s records %q)", ErrUnknownExpression, expr, f.path, file.Header.Expr)
	}
	events := make([]event.Event, len(file.Events))
	copy(events, file.Events)
	return &Evaluation{Expr: expr, Injection: file.Header.Injection, Events: events}, nil
}

func squash(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// File converts the evaluation into a trace file.
func (e *Evaluation) File() *tracefile.File {
	return &tracefile.File{
		Header: tracefile.Header{Version: tracefile.Version, Expr: e.Expr, Injection: e.Injection},
		Events: e.Events,
	}
}
