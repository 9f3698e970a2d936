package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one key/value line in a header or result box. Details render in
// the order given.
type Detail struct {
	Key   string
	Value string
}

// Header is the banner printed before a long-running command.
type Header struct {
	Title   string   // e.g., "Set window position"
	Command string   // e.g., "normanctl set 12 40 --wait"
	Params  []Detail // e.g., {"Gateway", "192.168.1.50"}
	Width   int
}

// NewHeader builds a header sized for the current terminal.
func NewHeader(title, command string, params ...Detail) *Header {
	return &Header{Title: title, Command: command, Params: params, Width: GetTerminalWidth()}
}

func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render draws the title and command line, then the params under a divider.
func (h *Header) Render() string {
	width := clampWidth(h.Width)
	rows := []string{
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	}
	if len(h.Params) > 0 {
		rows = append(rows, RenderHorizontalDivider(max(width-6, 10), "─"))
		for _, p := range h.Params {
			rows = append(rows, HeaderParamKeyStyle.Render(p.Key+":")+" "+HeaderParamValueStyle.Render(p.Value))
		}
	}
	return HeaderBorderStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
