package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/normanctl/internal/ui"
	"github.com/muurk/normanctl/internal/version"
)

const AppName = "NORMAN BLINDS"

// AppVersion is shown next to the title.
func AppVersion() string {
	return version.Version
}

// The dashboard needs more room than the one-shot command output.
const (
	MinTerminalWidth = 72
	MaxContentWidth  = 120
)

var statusBackground = lipgloss.Color("#1A1A1A")

func text(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	TitleStyle   = text(ui.PrimaryColor).Bold(true)
	VersionStyle = text(ui.MutedColor).Italic(true)

	ActiveTabStyle = text(ui.TextColor).Background(ui.PrimaryColor).Bold(true).Padding(0, 2)
	TabStyle       = text(ui.MutedColor).Padding(0, 2)

	ColumnHeaderStyle   = text(ui.MutedColor).Bold(true).PaddingLeft(2)
	RowStyle            = text(ui.TextColor).PaddingLeft(2)
	SelectedRowStyle    = text(ui.SuccessColor).Bold(true)
	UnavailableRowStyle = text(ui.MutedColor).PaddingLeft(2)

	StatusBarStyle   = text(ui.MutedColor).Background(statusBackground).Padding(0, 1)
	StatusErrorStyle = text(ui.ErrorColor).Background(statusBackground).Padding(0, 1)

	SpinnerStyle = text(ui.PrimaryColor)
	MessageStyle = text(ui.WarningColor).Italic(true)
	HelpStyle    = text(ui.MutedColor).Padding(1, 0, 0, 0)
)

// ResponsiveWidth clamps the terminal width into the supported range.
func ResponsiveWidth(termWidth int) int {
	return min(max(termWidth, MinTerminalWidth), MaxContentWidth)
}
