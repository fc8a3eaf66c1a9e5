// Package presenter writes user-facing CLI output: status lines, section
// headers, and the framed response shown after each task.
package presenter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Presenter is the CLI output surface.
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Response(title, body string, ok bool)
	Prompt(question string) (string, error)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// ColorMode selects whether output is colored.
type ColorMode int

const (
	// ColorAuto lets the color package detect terminal support.
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output.
	ColorAlways
	// ColorNever disables colored output.
	ColorNever
)

// TerminalPresenter implements Presenter for a terminal.
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	input       *bufio.Reader
	colorMode   ColorMode
	quiet       bool
}

// New creates a presenter on stdout, stderr and stdin.
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a presenter writing to the given streams.
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}

	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		input:       bufio.NewReader(os.Stdin),
		colorMode:   colorMode,
	}
}

// SetInput replaces the reader Prompt reads from.
func (p *TerminalPresenter) SetInput(r io.Reader) {
	p.input = bufio.NewReader(r)
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("SKILLET_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error writes err to stderr. Errors are shown even in quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success writes a success line.
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning writes a warning line.
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info writes a plain line.
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s\n", message)
}

// Section writes an underlined header.
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len([]rune(title))))
}

// Response frames a task result under title. The border is green when ok
// and red otherwise. The body is always printed, even in quiet mode, since
// it is the command's output.
func (p *TerminalPresenter) Response(title, body string, ok bool) {
	if p.quiet {
		fmt.Fprintln(p.output, strings.TrimRight(body, "\n"))
		return
	}

	var borderColor lipgloss.TerminalColor = lipgloss.Color("2")
	if !ok {
		borderColor = lipgloss.Color("1")
	}
	if p.colorMode == ColorNever {
		borderColor = lipgloss.NoColor{}
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(borderColor)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1)

	content := titleStyle.Render(title) + "\n\n" + strings.TrimRight(body, "\n")
	fmt.Fprintln(p.output, box.Render(content))
}

// Prompt writes question and reads one line of input. io.EOF is returned
// when the input is exhausted.
func (p *TerminalPresenter) Prompt(question string) (string, error) {
	color.New(color.FgCyan, color.Bold).Fprint(p.output, question)

	line, err := p.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Separator writes a horizontal rule.
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet enables or disables quiet mode.
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet reports whether quiet mode is enabled.
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

var defaultPresenter = New()

// Default returns the process-wide presenter.
func Default() *TerminalPresenter {
	return defaultPresenter
}

// Error writes an error using the default presenter.
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success writes a success line using the default presenter.
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning writes a warning using the default presenter.
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info writes a plain line using the default presenter.
func Info(message string) {
	defaultPresenter.Info(message)
}

// Section writes a header using the default presenter.
func Section(title string) {
	defaultPresenter.Section(title)
}

// Response frames a result using the default presenter.
func Response(title, body string, ok bool) {
	defaultPresenter.Response(title, body, ok)
}

// Prompt reads a line using the default presenter.
func Prompt(question string) (string, error) {
	return defaultPresenter.Prompt(question)
}

// Separator writes a rule using the default presenter.
func Separator() {
	defaultPresenter.Separator()
}

// SetQuiet toggles quiet mode on the default presenter.
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}

// IsQuiet reports quiet mode of the default presenter.
func IsQuiet() bool {
	return defaultPresenter.IsQuiet()
}
