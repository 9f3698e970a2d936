package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer renders boxes to a writer at a fixed width. Commands print
// through a Printer so tests can capture output.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter prints to w, or stdout when w is nil, at the terminal width.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) box(r *Result) {
	_, _ = fmt.Fprintln(p.out, r.SetWidth(p.width).Render())
}

func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.box(NewSuccessResult(title, details...))
}

// PrintFailure prints err with troubleshooting tips.
func (p *Printer) PrintFailure(title string, err error) {
	p.box(NewFailureResult(title, err))
}

func (p *Printer) PrintWarning(title string, details ...Detail) {
	p.box(NewWarningResult(title, details...))
}
