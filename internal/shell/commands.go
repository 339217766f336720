package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mdb/internal/command"
	"mdb/internal/mdb"
)

func (s *Shell) commands() []command.Command {
	return []command.Command{
		{
			Keys:    []string{"evaluate"},
			Handler: s.cmdEvaluate,
			Usage:   "[-full|-profile] [<type>]",
			Short:   "Evaluate and start debugging a new metaprogram.",
			Long: "If called with no arguments, then the last evaluated metaprogram will be\n" +
				"reevaluated.\n\n" +
				"Previous breakpoints are cleared.\n\n" +
				"With -full every instantiation is expanded while stepping, even if it has\n" +
				"been visited before. With -profile the children of every frame are ordered\n" +
				"by the time the compiler spent on them, longest first.",
		},
		{
			Keys:       []string{"step"},
			Repeatable: true,
			Handler:    s.cmdStep,
			Usage:      "[over] [n]",
			Short:      "Step the program.",
			Long: "Argument n means step n times. n defaults to 1 if not specified.\n" +
				"Negative n means step the program backwards.\n\n" +
				"Use of the `over` qualifier will jump over sub instantiations.",
		},
		{
			Keys:    []string{"rbreak"},
			Handler: s.cmdRbreak,
			Usage:   "<regex>",
			Short:   "Add breakpoint for all types matching `<regex>`.",
		},
		{
			Keys:       []string{"continue"},
			Repeatable: true,
			Handler:    s.cmdContinue,
			Usage:      "[n]",
			Short:      "Continue program being debugged.",
			Long: "The program is continued until the nth breakpoint or the end of the program\n" +
				"is reached. n defaults to 1 if not specified.\n" +
				"Negative n means continue the program backwards.",
		},
		{
			Keys:    []string{"forwardtrace", "ft"},
			Handler: s.cmdForwardtrace,
			Usage:   "[full] [n]",
			Short:   "Print forwardtrace from the current point.",
			Long: "Use of the full qualifier will expand Memoizations even if that instantiation\n" +
				"path has been visited before.\n\n" +
				"The n specifier limits the depth of the trace. If n is not specified, then the\n" +
				"trace depth is unlimited.",
		},
		{
			Keys:    []string{"backtrace", "bt"},
			Handler: s.cmdBacktrace,
			Short:   "Print backtrace from the current point.",
		},
		{
			Keys:    []string{"help"},
			Handler: s.cmdHelp,
			Usage:   "[<command>]",
			Short:   "Show help for commands.",
			Long:    "If <command> is not specified, show a list of all available commands.",
		},
		{
			Keys:    []string{"quit"},
			Handler: s.cmdQuit,
			Short:   "Quit metadebugger.",
		},
	}
}

// parseCount parses an optional signed count; empty means def.
func parseCount(field string, def int) (int, error) {
	if field == "" {
		return def, nil
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArgumentParsing, err)
	}
	return n, nil
}

// parseQualified parses "[qualifier] [n]".
func parseQualified(args, qualifier string) (bool, string, error) {
	fields := strings.Fields(args)
	qualified := false
	if len(fields) > 0 && fields[0] == qualifier {
		qualified = true
		fields = fields[1:]
	}
	switch len(fields) {
	case 0:
		return qualified, "", nil
	case 1:
		return qualified, fields[0], nil
	default:
		return false, "", ErrArgumentParsing
	}
}

// parseEvaluate splits an optional mode flag off the expression.
func parseEvaluate(args string) (mdb.Mode, string) {
	for _, flag := range []struct {
		name string
		mode mdb.Mode
	}{{"-full", mdb.ModeFull}, {"-profile", mdb.ModeProfile}} {
		if args == flag.name {
			return flag.mode, ""
		}
		if rest, ok := strings.CutPrefix(args, flag.name+" "); ok {
			return flag.mode, strings.TrimSpace(rest)
		}
	}
	return mdb.ModeNormal, args
}

func (s *Shell) cmdEvaluate(ctx context.Context, args string) error {
	mode, expr := parseEvaluate(args)
	if err := s.eng.Evaluate(ctx, expr, mode); err != nil {
		return err
	}
	s.println("Metaprogram started")
	if s.opts.Timings {
		fmt.Fprint(s.out, s.eng.TimingSummary()) //nolint:errcheck
	}
	return nil
}

func (s *Shell) cmdStep(_ context.Context, args string) error {
	over, field, err := parseQualified(args, "over")
	if err != nil {
		return err
	}
	n, err := parseCount(field, 1)
	if err != nil {
		return err
	}
	out, err := s.eng.Step(over, n)
	if err != nil {
		return err
	}
	s.displayOutcome(out)
	return nil
}

func (s *Shell) cmdContinue(_ context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) > 1 {
		return ErrArgumentParsing
	}
	field := ""
	if len(fields) == 1 {
		field = fields[0]
	}
	n, err := parseCount(field, 1)
	if err != nil {
		return err
	}
	out, err := s.eng.Continue(n)
	if err != nil {
		return err
	}
	s.displayOutcome(out)
	return nil
}

func (s *Shell) cmdRbreak(_ context.Context, args string) error {
	bp, err := s.eng.AddBreakpoint(args)
	if errors.Is(err, mdb.ErrFinished) {
		s.displayFinished()
		return nil
	}
	if err != nil {
		return err
	}
	if bp.Inert() {
		s.println(fmt.Sprintf("Breakpoint %q will never stop the execution", bp.Pattern))
		return nil
	}
	s.println(fmt.Sprintf("Breakpoint %q will stop the execution on %d location(s)", bp.Pattern, bp.Matches))
	return nil
}

func (s *Shell) cmdForwardtrace(_ context.Context, args string) error {
	full, field, err := parseQualified(args, "full")
	if err != nil {
		return err
	}
	depth := -1
	if field != "" {
		n, err := strconv.ParseUint(field, 10, 31)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrArgumentParsing, err)
		}
		depth = int(n)
	}
	err = s.eng.Forwardtrace(s.out, mdb.ForwardtraceOptions{
		Full:     full,
		MaxDepth: depth,
		Width:    s.opts.Width,
		Color:    s.opts.Color,
	})
	if errors.Is(err, mdb.ErrFinished) {
		s.displayFinished()
		return nil
	}
	return err
}

func (s *Shell) cmdBacktrace(_ context.Context, args string) error {
	if args != "" {
		return ErrNoArguments
	}
	bt, err := s.eng.Backtrace()
	if errors.Is(err, mdb.ErrFinished) {
		s.displayFinished()
		return nil
	}
	if err != nil {
		return err
	}
	for i := range bt {
		s.println(fmt.Sprintf("#%d %s", i, bt[len(bt)-1-i]))
	}
	s.println(fmt.Sprintf("#%d %s", len(bt), s.eng.RootLabel()))
	return nil
}

func (s *Shell) cmdHelp(_ context.Context, args string) error {
	if args == "" {
		s.println("List of available commands:")
		s.println()
		for _, c := range s.d.Map().Commands() {
			s.println(c.Name() + " -- " + c.Short)
		}
		s.println()
		s.println(`Type "help" followed by a command name for more information.`)
		s.println("Command name abbreviations are allowed if unambiguous.")
		s.println("A blank line as an input will repeat the last command, if it makes sense.")
		return nil
	}

	c, rest, ok := s.d.Map().Lookup(args)
	if !ok {
		return ErrUnknownTopic
	}
	if rest != "" {
		return ErrTooManyTopics
	}
	s.println(c.Synopsis())
	if c.Long != "" {
		s.println(c.Long)
	} else {
		s.println(c.Short)
	}
	return nil
}

func (s *Shell) cmdQuit(_ context.Context, args string) error {
	if args != "" {
		return ErrNoArguments
	}
	s.stopped = true
	return nil
}

func (s *Shell) displayOutcome(out mdb.Outcome) {
	switch out.Report {
	case mdb.ReportFinished:
		s.displayFinished()
	case mdb.ReportBeginning:
		s.println("Metaprogram reached the beginning")
	case mdb.ReportBreakpoint:
		s.println(fmt.Sprintf("Breakpoint %q reached", out.Breakpoint.Pattern))
		s.println(out.Frame.String())
	case mdb.ReportFrame:
		s.println(out.Frame.String())
	}
}

func (s *Shell) displayFinished() {
	s.println("Metaprogram finished")
	res, ok := s.eng.Result()
	if !ok {
		return
	}
	if res.IsError() {
		s.displayError(res.Text)
		return
	}
	s.println(res.Text)
}
