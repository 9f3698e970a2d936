package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus is where a step of a multi-step command stands.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// stepLooks maps a status to its marker and style.
var stepLooks = map[StepStatus]struct {
	marker string
	style  lipgloss.Style
}{
	StepPending:  {StepMarkerPending, StepPendingStyle},
	StepRunning:  {StepMarkerRunning, StepRunningStyle},
	StepComplete: {StepMarkerComplete, StepCompleteStyle},
	StepFailed:   {FailureMarker, ErrorTitleStyle},
	StepSkipped:  {StepMarkerSkipped, StepPendingStyle},
}

// markerColumn is where step markers line up.
const markerColumn = 45

// Step is one line of a Progress.
type Step struct {
	Number  int // 1-based
	Name    string
	Status  StepStatus
	Message string // e.g. "attempt 3", "closed 65%"
}

// Progress is a numbered step list with a completion bar.
type Progress struct {
	Steps   []Step
	Current int     // last step started, 1-based
	Percent float64 // finished share of Steps, 0-1
	bar     progress.Model
}

// NewProgress creates a progress display with total pending steps.
func NewProgress(total int) *Progress {
	p := &Progress{Steps: make([]Step, total)}
	for i := range p.Steps {
		p.Steps[i].Number = i + 1
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sizes the bar for a terminal of the given width.
func (p *Progress) SetWidth(width int) *Progress {
	barWidth := min(max(width-20, 20), 50)
	p.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	return p
}

// SetStepNames names the steps in order; extra names are ignored.
func (p *Progress) SetStepNames(names []string) *Progress {
	for i := range min(len(names), len(p.Steps)) {
		p.Steps[i].Name = names[i]
	}
	return p
}

// UpdateStep records a step's status. Out of range steps are ignored.
func (p *Progress) UpdateStep(n int, status StepStatus, message string) {
	if n < 1 || n > len(p.Steps) {
		return
	}
	p.Steps[n-1].Status = status
	p.Steps[n-1].Message = message

	if status == StepRunning {
		p.Current = n
		return
	}
	finished := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			finished++
		}
	}
	p.Percent = float64(finished) / float64(len(p.Steps))
}

func (p *Progress) StartStep(n int, message string)    { p.UpdateStep(n, StepRunning, message) }
func (p *Progress) CompleteStep(n int, message string) { p.UpdateStep(n, StepComplete, message) }
func (p *Progress) FailStep(n int, message string)     { p.UpdateStep(n, StepFailed, message) }

// Render draws the bar followed by every step.
func (p *Progress) Render() string {
	lines := []string{
		"  " + fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, len(p.Steps)),
		"",
	}
	for _, s := range p.Steps {
		lines = append(lines, p.renderStepLine(s))
	}
	return strings.Join(lines, "\n")
}

func (p *Progress) renderStepLine(s Step) string {
	look := stepLooks[s.Status]

	line := fmt.Sprintf("  [%d/%d] %s%s%s",
		s.Number, len(p.Steps),
		look.style.Render(s.Name),
		strings.Repeat(" ", max(markerColumn-lipgloss.Width(s.Name), 1)),
		look.style.Render(look.marker),
	)
	if s.Message != "" {
		line += "  " + StepNoteStyle.Render("("+s.Message+")")
	}
	return line
}

// StepCallback is how an operation reports progress to a Runner. A non-empty
// name renames the step.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)
