package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"mdb/internal/event"
	"mdb/internal/graph"
	"mdb/internal/tracefile"
	"mdb/internal/tracelog"
)

// Placeholders substituted in every argument of a compiler command.
const (
	PlaceholderInput = "{input}"
	PlaceholderTrace = "{trace}"
	PlaceholderExpr  = "{expr}"
)

const traceName = "trace.ndjson"

// CommandOptions configures a CommandEvaluator.
type CommandOptions struct {
	// Argv is the compiler command line. Without a {trace} argument the
	// command is expected to print the trace on stdout.
	Argv []string
	// Prelude is the environment the expression is evaluated in.
	Prelude string
	// InternalFile names the generated translation unit.
	InternalFile string
	// WrapPrefix and WrapSuffix surround the expression in the generated code.
	WrapPrefix string
	WrapSuffix string
	// TempDir is where per-evaluation work directories are created.
	TempDir string
}

// CommandEvaluator runs an external compiler on a generated translation unit
// and collects the trace it writes.
type CommandEvaluator struct {
	opts CommandOptions
}

// NewCommandEvaluator validates opts and returns an evaluator.
func NewCommandEvaluator(opts CommandOptions) (*CommandEvaluator, error) {
	if len(opts.Argv) == 0 || opts.Argv[0] == "" {
		return nil, errors.New("compiler command is empty")
	}
	if opts.InternalFile == "" {
		opts.InternalFile = "mdb-stdin"
	}
	if strings.ContainsAny(opts.InternalFile, `/\`) {
		return nil, fmt.Errorf("internal file %q must be a plain name", opts.InternalFile)
	}
	if opts.WrapPrefix == "" {
		opts.WrapPrefix = "metashell::impl::wrap<"
	}
	if opts.WrapSuffix == "" {
		opts.WrapSuffix = ">"
	}
	return &CommandEvaluator{opts: opts}, nil
}

// Fingerprint identifies everything besides the expression that influences
// an evaluation.
func (c *CommandEvaluator) Fingerprint() string {
	var b strings.Builder
	for _, a := range c.opts.Argv {
		b.WriteString(a)
		b.WriteByte(0)
	}
	b.WriteString(c.opts.Prelude)
	b.WriteByte(0)
	b.WriteString(c.opts.InternalFile)
	b.WriteByte(0)
	b.WriteString(c.opts.WrapPrefix)
	b.WriteString(c.opts.WrapSuffix)
	return b.String()
}

// Input returns the generated translation unit for expr and the location of
// the line that instantiates the wrapper.
func (c *CommandEvaluator) Input(expr string) (string, graph.FileLocation) {
	var b strings.Builder
	b.WriteString(c.opts.Prelude)
	if c.opts.Prelude != "" && !strings.HasSuffix(c.opts.Prelude, "\n") {
		b.WriteByte('\n')
	}
	row := strings.Count(b.String(), "\n") + 1
	fmt.Fprintf(&b, "::%s %s %s __mdb_v;\n", c.opts.WrapPrefix, expr, c.opts.WrapSuffix)
	return b.String(), graph.FileLocation{Name: c.opts.InternalFile, Row: row, Col: 1}
}

// Evaluate writes the translation unit into a fresh work directory, runs the
// command there and reads back the trace. A failing command is not an error:
// its stderr becomes the error result of the evaluation.
func (c *CommandEvaluator) Evaluate(ctx context.Context, expr string) (*Evaluation, error) {
	span := tracelog.FromContext(ctx).Begin(tracelog.LevelPhase, "compile", expr)

	dir, err := os.MkdirTemp(c.opts.TempDir, "mdb-eval-*")
	if err != nil {
		span.End("error")
		return nil, err
	}
	defer os.RemoveAll(dir)

	input, injection := c.Input(expr)
	if err := os.WriteFile(filepath.Join(dir, c.opts.InternalFile), []byte(input), 0o644); err != nil {
		span.End("error")
		return nil, err
	}

	argv, traceToFile := c.expand(expr)
	stdout, stderr, exitErr, err := run(ctx, dir, argv)
	if err != nil {
		span.End("error")
		return nil, err
	}

	var file *tracefile.File
	if traceToFile {
		file, err = tracefile.ReadFile(filepath.Join(dir, traceName))
		if errors.Is(err, os.ErrNotExist) {
			file, err = &tracefile.File{}, nil
		}
	} else {
		file, err = tracefile.Read(bytes.NewReader(stdout))
	}
	if err != nil {
		if exitErr == nil {
			span.End("error")
			return nil, fmt.Errorf("read trace of %q: %w", expr, err)
		}
		file = &tracefile.File{}
	}

	events := file.Events
	if n := len(events); n == 0 || events[n-1].Kind != event.KindEvaluationEnd {
		res := graph.Result{Kind: graph.ResultType}
		switch {
		case exitErr != nil:
			res = graph.Result{Kind: graph.ResultError, Text: strings.TrimSpace(string(stderr))}
		case traceToFile:
			res.Text = strings.TrimSpace(string(stdout))
		}
		events = append(events, event.EvaluationEnd(res))
	}

	if exitErr != nil {
		span.End(exitErr.Error())
	} else {
		span.End(fmt.Sprintf("%d events", len(events)))
	}
	return &Evaluation{Expr: expr, Injection: injection, Events: events}, nil
}

func (c *CommandEvaluator) expand(expr string) (argv []string, traceToFile bool) {
	r := strings.NewReplacer(
		PlaceholderInput, c.opts.InternalFile,
		PlaceholderTrace, traceName,
		PlaceholderExpr, expr,
	)
	argv = make([]string, len(c.opts.Argv))
	for i, a := range c.opts.Argv {
		if strings.Contains(a, PlaceholderTrace) {
			traceToFile = true
		}
		argv[i] = r.Replace(a)
	}
	return argv, traceToFile
}

// run executes argv in dir and drains both output pipes. A non-zero exit is
// reported through exitErr; err is reserved for failures to run at all.
func run(ctx context.Context, dir string, argv []string) (stdout, stderr []byte, exitErr *exec.ExitError, err error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, outPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errBuf, errPipe)
		return err
	})
	drainErr := g.Wait()
	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, nil, ctxErr
	}
	if waitErr != nil {
		if !errors.As(waitErr, &exitErr) {
			return nil, nil, nil, waitErr
		}
	}
	if drainErr != nil {
		return nil, nil, nil, drainErr
	}
	return outBuf.Bytes(), errBuf.Bytes(), exitErr, nil
}
