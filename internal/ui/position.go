package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const positionBarWidth = 20

var positionBar = progress.New(
	progress.WithSolidFill(string(SuccessColor)),
	progress.WithWidth(positionBarWidth),
	progress.WithoutPercentage(),
)

// RenderPositionBar renders an open percentage as a bar followed by the
// number. Unknown positions render as a dashed placeholder.
func RenderPositionBar(open int, known bool) string {
	if !known {
		return StepPendingStyle.Render(strings.Repeat("╌", positionBarWidth)) + "    ?"
	}
	if open < 0 {
		open = 0
	}
	if open > 100 {
		open = 100
	}
	return positionBar.ViewAs(float64(open)/100) + fmt.Sprintf(" %3d%%", open)
}

// PositionLabel describes an open percentage in words.
func PositionLabel(open int, known bool) string {
	switch {
	case !known:
		return "unknown"
	case open == 0:
		return "closed"
	case open >= 100:
		return "open"
	default:
		return fmt.Sprintf("%d%% open", open)
	}
}

// AvailabilityMarker renders a green check or a red cross.
func AvailabilityMarker(available bool) string {
	if available {
		return lipgloss.NewStyle().Foreground(SuccessColor).Render(SuccessMarker)
	}
	return lipgloss.NewStyle().Foreground(ErrorColor).Render(FailureMarker)
}
