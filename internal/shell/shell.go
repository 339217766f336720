// Package shell is the line-oriented metadebugger front end. It owns the
// command table, parses command arguments and turns engine results into
// the messages the user sees.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"mdb/internal/command"
	"mdb/internal/mdb"
	"mdb/internal/tracelog"
)

// Prompt is printed before every interactive line.
const Prompt = "(mdb) "

var (
	// ErrArgumentParsing is returned when a known command gets malformed arguments.
	ErrArgumentParsing = errors.New("argument parsing failed")
	// ErrNoArguments is returned when a command that takes no arguments gets some.
	ErrNoArguments = errors.New("this command doesn't accept arguments")
	// ErrUnknownTopic is returned by help for a name no command matches.
	ErrUnknownTopic = errors.New("command not found")
	// ErrTooManyTopics is returned by help with more than one word.
	ErrTooManyTopics = errors.New("only one argument expected")
)

// Options configures a Shell.
type Options struct {
	// Interactive prints the splash and a prompt before every line.
	Interactive bool
	// Width is the terminal width used to wrap forward traces; 0 disables wrapping.
	Width int
	// Color enables ANSI colors.
	Color bool
	// Timings prints phase durations after every evaluation.
	Timings bool
	// Recorder receives one span per input line; nil disables it.
	Recorder *tracelog.Recorder
	// Startup lines run before any input is read.
	Startup []string
}

// Shell drives an engine from text commands.
type Shell struct {
	eng    *mdb.Engine
	d      *command.Dispatcher
	out    io.Writer
	opts   Options
	rec    *tracelog.Recorder

	errColor *color.Color
	stopped  bool
}

// New creates a shell writing to out.
func New(eng *mdb.Engine, out io.Writer, opts Options) *Shell {
	if out == nil {
		out = io.Discard
	}
	s := &Shell{
		eng:      eng,
		out:      out,
		opts:     opts,
		rec:      opts.Recorder,
		errColor: color.New(color.FgHiRed),
	}
	if opts.Color {
		s.errColor.EnableColor()
	} else {
		s.errColor.DisableColor()
	}
	m, err := command.NewMap(s.commands())
	if err != nil {
		panic(fmt.Sprintf("shell: invalid command table: %v", err))
	}
	s.d = command.NewDispatcher(m)
	return s
}

// Stopped reports whether quit has been executed.
func (s *Shell) Stopped() bool { return s.stopped }

// Engine returns the engine the shell drives.
func (s *Shell) Engine() *mdb.Engine { return s.eng }

// Commands returns the command table.
func (s *Shell) Commands() []command.Command { return s.d.Map().Commands() }

// History returns the lines entered so far.
func (s *Shell) History() []string { return s.d.History() }

// Splash prints the greeting shown at the start of an interactive session.
func (s *Shell) Splash() {
	fmt.Fprintln(s.out, `For help, type "help".`) //nolint:errcheck
}

// Line executes one input line. Errors are reported to the output; the
// shell keeps running.
func (s *Shell) Line(ctx context.Context, line string) {
	span := s.rec.Command(line)
	err := s.d.Dispatch(ctx, line)
	if span != nil && s.eng.Evaluated() {
		span.At(s.eng.Cursor())
	}
	if err != nil {
		s.displayError(message(err))
		span.End(err.Error())
		return
	}
	span.End("")
}

// Run reads lines from in until EOF or quit. Outside interactive mode
// blank lines and lines starting with '#' are skipped.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	if s.opts.Interactive {
		s.Splash()
	}
	for _, line := range s.opts.Startup {
		if s.stopped {
			return nil
		}
		s.Line(ctx, line)
	}
	sc := bufio.NewScanner(in)
	for !s.stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.opts.Interactive {
			fmt.Fprint(s.out, Prompt) //nolint:errcheck
		}
		if !sc.Scan() {
			if s.opts.Interactive {
				fmt.Fprintln(s.out) //nolint:errcheck
			}
			break
		}
		line := sc.Text()
		if !s.opts.Interactive {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
		}
		s.Line(ctx, line)
	}
	return sc.Err()
}

// message turns an error into the text shown to the user.
func message(err error) string {
	var perr *mdb.PatternError
	switch {
	case errors.Is(err, command.ErrCommandNotFound):
		return "Command parsing failed"
	case errors.Is(err, ErrArgumentParsing):
		return "Argument parsing failed"
	case errors.Is(err, ErrNoArguments):
		return "This command doesn't accept arguments"
	case errors.Is(err, ErrUnknownTopic):
		return "Command not found"
	case errors.Is(err, ErrTooManyTopics):
		return "Only one argument expected"
	case errors.Is(err, mdb.ErrNotEvaluated):
		return "Metaprogram not evaluated yet"
	case errors.Is(err, mdb.ErrNothingEvaluated):
		return "Nothing has been evaluated yet."
	case errors.Is(err, mdb.ErrEmptyPattern):
		return "Argument expected"
	case errors.As(err, &perr):
		return perr.Error()
	default:
		return "Error: " + err.Error()
	}
}

func (s *Shell) displayError(msg string) {
	fmt.Fprintln(s.out, s.errColor.Sprint(msg)) //nolint:errcheck
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...) //nolint:errcheck
}
