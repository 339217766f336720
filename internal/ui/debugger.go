// Package ui implements the full-screen stepping view of mdb.
package ui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"mdb/internal/mdb"
	"mdb/internal/shell"
	"mdb/internal/tracelog"
)

const (
	logLines   = 6
	logHistory = 200
	// header, progress bar, separator, log separator, input line
	chromeLines = 5
)

// Options configures the debugger view.
type Options struct {
	// Expr is evaluated when the program starts, if set.
	Expr string
	Mode mdb.Mode
	// Color enables colored forward traces.
	Color bool
	// Depth bounds the forward trace pane; 0 means unbounded.
	Depth int
	// Recorder receives the lines the model runs.
	Recorder *tracelog.Recorder
}

type promptKind uint8

const (
	promptNone promptKind = iota
	promptCommand
	promptBreakpoint
)

// commandDoneMsg carries the output of one shell line.
type commandDoneMsg struct {
	line   string
	output string
}

// Debugger is a Bubble Tea model stepping through a metaprogram. Every
// action is a shell command; their output lands in the log pane and the
// trace pane shows the forward trace from the cursor.
type Debugger struct {
	ctx  context.Context
	eng  *mdb.Engine
	sh   *shell.Shell
	buf  *bytes.Buffer
	opts Options

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	prog     progress.Model

	prompt  promptKind
	busy    string
	title   string
	pos     int
	total   int
	log     []string
	width   int
	height  int
	quitted bool
}

// NewDebugger returns the model. The shell writes into a private buffer.
func NewDebugger(ctx context.Context, eng *mdb.Engine, opts Options) *Debugger {
	buf := &bytes.Buffer{}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	ti := textinput.New()
	ti.CharLimit = 512

	d := &Debugger{
		ctx:      ctx,
		eng:      eng,
		sh:       shell.New(eng, buf, shell.Options{Color: opts.Color, Recorder: opts.Recorder}),
		buf:      buf,
		opts:     opts,
		viewport: viewport.New(80, 24-chromeLines-logLines),
		input:    ti,
		spinner:  sp,
		prog:     prog,
		width:    80,
		height:   24,
	}
	d.refresh()
	return d
}

// Init starts the spinner and the initial evaluation.
func (d *Debugger) Init() tea.Cmd {
	if d.opts.Expr == "" {
		return d.spinner.Tick
	}
	return tea.Batch(d.spinner.Tick, d.run(evaluateLine(d.opts.Mode, d.opts.Expr)))
}

func evaluateLine(mode mdb.Mode, expr string) string {
	switch mode {
	case mdb.ModeFull:
		return "evaluate -full " + expr
	case mdb.ModeProfile:
		return "evaluate -profile " + expr
	default:
		return "evaluate " + expr
	}
}

// Log returns the lines in the log pane, oldest first.
func (d *Debugger) Log() []string {
	out := make([]string, len(d.log))
	copy(out, d.log)
	return out
}

// Quitted reports whether the user left the view.
func (d *Debugger) Quitted() bool { return d.quitted }

// run executes line on the shell outside the update loop. Only one line is
// in flight at a time; keys are ignored until it is done.
func (d *Debugger) run(line string) tea.Cmd {
	d.busy = line
	return func() tea.Msg {
		d.buf.Reset()
		d.sh.Line(d.ctx, line)
		return commandDoneMsg{line: line, output: d.buf.String()}
	}
}

// Update handles messages.
func (d *Debugger) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case commandDoneMsg:
		d.busy = ""
		d.appendLog("(mdb) " + msg.line)
		for _, l := range strings.Split(strings.TrimRight(msg.output, "\n"), "\n") {
			if l != "" {
				d.appendLog(l)
			}
		}
		d.refresh()
		if d.sh.Stopped() {
			d.quitted = true
			return d, tea.Quit
		}
		return d, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	case tea.WindowSizeMsg:
		d.resize(msg.Width, msg.Height)
		return d, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			d.quitted = true
			return d, tea.Quit
		}
		if d.busy != "" {
			return d, nil
		}
		if d.prompt != promptNone {
			return d.updatePrompt(msg)
		}
		return d.updateKeys(msg)
	}
	return d, nil
}

var keyCommands = map[string]string{
	"s": "step",
	"n": "step",
	"S": "step -1",
	"N": "step -1",
	"o": "step over",
	"O": "step over -1",
	"c": "continue",
	"C": "continue -1",
	"t": "backtrace",
	"r": "evaluate",
}

func (d *Debugger) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if line, ok := keyCommands[key]; ok {
		return d, d.run(line)
	}
	switch key {
	case "q":
		d.quitted = true
		return d, tea.Quit
	case ":":
		return d, d.openPrompt(promptCommand, ": ", "command")
	case "b":
		return d, d.openPrompt(promptBreakpoint, "rbreak ", "regex")
	}
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

func (d *Debugger) openPrompt(kind promptKind, prompt, placeholder string) tea.Cmd {
	d.prompt = kind
	d.input.Prompt = prompt
	d.input.Placeholder = placeholder
	d.input.Reset()
	return d.input.Focus()
}

func (d *Debugger) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		d.closePrompt()
		return d, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(d.input.Value())
		kind := d.prompt
		d.closePrompt()
		if kind == promptBreakpoint {
			text = "rbreak " + text
		}
		return d, d.run(text)
	}
	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	return d, cmd
}

func (d *Debugger) closePrompt() {
	d.prompt = promptNone
	d.input.Blur()
	d.input.Reset()
}

func (d *Debugger) appendLog(line string) {
	d.log = append(d.log, line)
	if len(d.log) > logHistory {
		d.log = d.log[len(d.log)-logHistory:]
	}
}

func (d *Debugger) resize(width, height int) {
	if width > 0 {
		d.width = width
		d.prog.Width = width - 4
		d.viewport.Width = width
		d.input.Width = width - 10
	}
	if height > 0 {
		d.height = height
		h := height - chromeLines - logLines
		if h < 3 {
			h = 3
		}
		d.viewport.Height = h
	}
	// commandDoneMsg refreshes once the running line is done
	if d.busy == "" {
		d.refresh()
	}
}

// refresh snapshots the engine state for View and re-renders the trace
// pane. It must not run while a command is in flight.
func (d *Debugger) refresh() {
	d.title = "mdb"
	if d.eng.Evaluated() {
		d.title = fmt.Sprintf("mdb: %s [%s]", d.eng.RootLabel(), d.eng.Mode())
	}
	d.pos, d.total = d.eng.Position()

	var b strings.Builder
	switch {
	case !d.eng.Evaluated():
		b.WriteString("Metaprogram not evaluated yet\n\nPress : and type evaluate <type> to start.")
	case d.eng.Finished():
		b.WriteString("Metaprogram finished\n")
		if res, ok := d.eng.Result(); ok {
			b.WriteString(res.Text)
		}
	default:
		depth := d.opts.Depth
		if depth <= 0 {
			depth = -1
		}
		err := d.eng.Forwardtrace(&b, mdb.ForwardtraceOptions{
			MaxDepth: depth,
			Width:    d.viewport.Width,
			Color:    d.opts.Color,
		})
		if err != nil {
			b.Reset()
			b.WriteString(err.Error())
		}
	}
	d.viewport.SetContent(strings.TrimRight(b.String(), "\n"))
	d.viewport.GotoTop()
}

// View renders the screen.
func (d *Debugger) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var b strings.Builder
	header := d.title
	if d.busy != "" {
		header = fmt.Sprintf("%s %s (%s)", d.spinner.View(), header, d.busy)
	}
	b.WriteString(titleStyle.Render(truncate(header, d.width)))
	b.WriteString("\n")

	b.WriteString(d.prog.ViewAs(completion(d.pos, d.total)))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" %d/%d", d.pos, d.total+1)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", max(d.width, 1))))
	b.WriteString("\n")

	b.WriteString(d.viewport.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", max(d.width, 1))))
	b.WriteString("\n")

	start := len(d.log) - logLines
	if start < 0 {
		start = 0
	}
	shown := d.log[start:]
	for i := 0; i < logLines; i++ {
		if i < len(shown) {
			b.WriteString(styleLogLine(shown[i]).Render(truncate(shown[i], d.width)))
		}
		b.WriteString("\n")
	}

	if d.prompt != promptNone {
		b.WriteString(d.input.View())
	} else {
		b.WriteString(dimStyle.Render("s/S step  o/O over  c/C continue  b break  t backtrace  : command  q quit"))
	}
	return b.String()
}

// completion maps the cursor onto [0, 1]: 0 at the start, 1 when finished.
func completion(pos, total int) float64 {
	if total+1 <= 0 {
		return 0
	}
	return float64(pos) / float64(total+1)
}

func styleLogLine(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "(mdb) "):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	case strings.HasPrefix(line, "Breakpoint "):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case line == "Metaprogram finished" || line == "Metaprogram started":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	default:
		return lipgloss.NewStyle()
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
