package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/ui"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(windowsCmd)
	rootCmd.AddCommand(roomsCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show rooms and windows",
	Long: `Fetch the room and window lists from the gateway and show them together.

The detailed format includes battery, signal strength and the other telemetry
each window reports.`,
	Example: `  # Everything the gateway knows
  normanctl status --host 192.168.1.50

  # One line per room and window
  normanctl status --format compact

  # JSON for scripting
  normanctl status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.gw.FetchCombinedState(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read gateway state: %w", err)
	}

	out := cmd.OutOrStdout()
	switch outputFormat {
	case "json":
		return writeJSON(out, state)
	case "compact":
		fmt.Fprint(out, gateway.FormatCompact(state))
	default:
		fmt.Fprint(out, gateway.FormatDetailed(state))
	}

	printProblems(cmd.ErrOrStderr(), state)
	return nil
}

// printProblems reports inconsistencies in the gateway's data on stderr.
func printProblems(w io.Writer, state *gateway.CombinedState) {
	warnings, problems := gateway.SeparateWarningsAndErrors(gateway.ValidateState(state))
	all := append(problems, warnings...)
	if len(all) == 0 {
		return
	}
	if outputFormat != "detailed" {
		fmt.Fprintln(w)
		fmt.Fprint(w, gateway.FormatValidationErrors(all))
		return
	}
	details := make([]ui.Detail, 0, len(all))
	for _, p := range problems {
		details = append(details, ui.Detail{Key: "Error", Value: problemText(p)})
	}
	for _, warn := range warnings {
		details = append(details, ui.Detail{Key: "Warning", Value: problemText(warn)})
	}
	ui.NewPrinter(w).PrintWarning("Gateway data problems", details...)
}

func problemText(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return strings.TrimPrefix(gwErr.Message, "warning: ")
	}
	return err.Error()
}

var windowsCmd = &cobra.Command{
	Use:     "windows",
	Aliases: []string{"devices"},
	Short:   "List windows and their positions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		state, err := a.gw.FetchCombinedState(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read gateway state: %w", err)
		}

		out := cmd.OutOrStdout()
		switch outputFormat {
		case "json":
			return writeJSON(out, state.Entries)
		case "compact":
			for _, e := range state.Entries {
				fmt.Fprintln(out, e.Device.Summary())
			}
		default:
			printWindowTable(out, state.Entries)
		}
		return nil
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List rooms and their aggregated positions",
	Long: `List rooms with the mean open percentage of their windows.

Windows that report no position are left out of the mean. When the gateway's
room list is empty, rooms are derived from the windows' room references.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		state, err := a.gw.FetchCombinedState(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read gateway state: %w", err)
		}
		rooms := gateway.SummarizeRooms(state)

		out := cmd.OutOrStdout()
		switch outputFormat {
		case "json":
			return writeJSON(out, rooms)
		case "compact":
			for _, r := range rooms {
				fmt.Fprintln(out, gateway.FormatRoomSummary(r))
			}
		default:
			printRoomTable(out, rooms)
		}
		return nil
	},
}

func printWindowTable(w io.Writer, entries []gateway.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No windows reported by the gateway.")
		return
	}
	fmt.Fprintln(w, ui.TableHeaderStyle.Render(fmt.Sprintf("%-8s %-22s %-16s %s", "ID", "NAME", "ROOM", "POSITION")))
	for _, e := range entries {
		open, known := e.Device.OpenPercent()
		name := e.Device.Name
		if name == "" {
			name = "Window " + e.Device.ID.String()
		}
		area := e.DisplayArea
		if area == "" {
			area = "-"
		}
		fmt.Fprintf(w, "%-8s %-22s %-16s %s  %s\n",
			e.Device.ID, clip(name, 22), clip(area, 16),
			ui.RenderPositionBar(open, known), ui.PositionLabel(open, known))
	}
}

func printRoomTable(w io.Writer, rooms []gateway.RoomSummary) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, "No rooms reported by the gateway.")
		return
	}
	fmt.Fprintln(w, ui.TableHeaderStyle.Render(fmt.Sprintf("%-8s %-22s %-8s %s", "ID", "NAME", "WINDOWS", "POSITION")))
	for _, r := range rooms {
		name := r.Name
		if name == "" {
			name = "Room " + r.ID.String()
		}
		fmt.Fprintf(w, "%-8s %-22s %-8d %s  %s\n",
			r.ID, clip(name, 22), r.Devices,
			ui.RenderPositionBar(r.OpenPercent, r.HasPosition), ui.PositionLabel(r.OpenPercent, r.HasPosition))
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
