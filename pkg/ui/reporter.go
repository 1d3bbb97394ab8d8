// Package ui prints the progress lines users see while a pipeline runs.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Colour modes accepted by NewReporter.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Reporter writes "[+]" progress lines to out and "[!]" warnings to errOut.
type Reporter struct {
	out    io.Writer
	errOut io.Writer
	step   lipgloss.Style
	warn   lipgloss.Style
}

// NewReporter creates a Reporter. mode is one of the Color constants; in
// auto mode colour is used only when the writer is a terminal and NO_COLOR
// is unset.
func NewReporter(out, errOut io.Writer, mode string) *Reporter {
	stepRenderer := lipgloss.NewRenderer(out)
	stepRenderer.SetColorProfile(profileFor(out, mode))
	warnRenderer := lipgloss.NewRenderer(errOut)
	warnRenderer.SetColorProfile(profileFor(errOut, mode))

	return &Reporter{
		out:    out,
		errOut: errOut,
		step:   stepRenderer.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		warn:   warnRenderer.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
	}
}

// Discard returns a Reporter that prints nothing.
func Discard() *Reporter {
	return NewReporter(io.Discard, io.Discard, ColorNever)
}

// Step prints a progress line.
func (r *Reporter) Step(format string, args ...any) {
	fmt.Fprintln(r.out, r.step.Render("[+] "+fmt.Sprintf(format, args...)))
}

// Warn prints a non-fatal problem.
func (r *Reporter) Warn(format string, args ...any) {
	fmt.Fprintln(r.errOut, r.warn.Render("[!] "+fmt.Sprintf(format, args...)))
}

// Blank prints an empty line between sections.
func (r *Reporter) Blank() {
	fmt.Fprintln(r.out)
}

func profileFor(w io.Writer, mode string) termenv.Profile {
	switch mode {
	case ColorAlways:
		return termenv.ANSI
	case ColorNever:
		return termenv.Ascii
	}
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return termenv.ANSI
		}
	}
	return termenv.Ascii
}
