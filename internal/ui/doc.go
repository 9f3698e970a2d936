// Package ui provides terminal output components for the normanctl CLI.
//
// Components are rendered once with Lipgloss and printed; they do not take
// over the terminal. The interactive dashboard lives in package tui.
//
// # Components
//
//   - Header: command banner with ordered parameters
//   - Progress: progress bar with a step list
//   - Result: success, warning and failure boxes; failure boxes carry the
//     gateway's troubleshooting tips
//   - RenderPositionBar: a window or room position as a bar
//
// Multi-step commands use a Runner:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:      "Set window position",
//	    Command:    "normanctl set 12 40 --wait",
//	    Params:     []ui.Detail{{Key: "Gateway", Value: host}},
//	    TotalSteps: 2,
//	    StepNames:  []string{"Send command", "Verify position"},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Detail, error) {
//	    onStep(1, "", ui.StepRunning, "")
//	    // ...
//	    onStep(1, "", ui.StepComplete, "closed 65%")
//	    return []ui.Detail{{Key: "Position", Value: "35% open"}}, nil
//	})
//
// Logging stays silent unless NORMAN_LOG_LEVEL or --log-level is set, so
// these components own stdout.
package ui
