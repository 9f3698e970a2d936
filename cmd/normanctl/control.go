package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/normanctl/internal/config"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/ui"
)

// Command flags
var (
	waitFlag bool
	retries  int
)

func init() {
	setCmd.Flags().BoolVar(&waitFlag, "wait", false, "Wait until the window reports the new position")
	setCmd.Flags().IntVar(&retries, "retries", 5, "Number of verification polls with --wait")

	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(closeCmd)

	roomCmd.AddCommand(roomSetCmd)
	roomCmd.AddCommand(roomOpenCmd)
	roomCmd.AddCommand(roomCloseCmd)
	roomCmd.AddCommand(roomPresetCmd)
	rootCmd.AddCommand(roomCmd)
}

var setCmd = &cobra.Command{
	Use:   "set <window-id> <open%>",
	Short: "Move a window to an open percentage",
	Long: `Move one window to the supported position nearest the requested open
percentage. The motors accept eight positions (closed 100, 81, 65, 50, 37,
25, 12 and 0), so 40% open becomes closed 65 (35% open).

The gateway acknowledges the command before the motor moves. With --wait the
window is polled until it reports the new position.`,
	Example: `  # Half open
  normanctl set 12 50

  # Move and wait until the window reports the new position
  normanctl set 12 40% --wait`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	open, err := gateway.ParseOpenPercent(args[1])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if !waitFlag {
		command, err := a.gw.SendDevicePosition(cmd.Context(), id, open)
		if err != nil {
			return err
		}
		printSent(a.printer, "Window "+id.String(), command)
		return nil
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Set window position",
		Command: "normanctl " + strings.Join(append([]string{"set"}, args...), " ") + " --wait",
		Params: []ui.Detail{
			{Key: "Gateway", Value: a.client.BaseURL},
			{Key: "Window", Value: id.String()},
			{Key: "Requested", Value: fmt.Sprintf("%d%% open", open)},
		},
		TotalSteps: 2,
		StepNames:  []string{"Send command", "Verify position"},
		Output:     cmd.OutOrStdout(),
	})
	return runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Detail, error) {
		return setAndVerify(ctx, a.gw, id, open, retries, onStep)
	})
}

// setAndVerify sends a device command, then polls until the device reports it.
func setAndVerify(ctx context.Context, gw *gateway.Gateway, id gateway.ID, open, retries int, onStep ui.StepCallback) ([]ui.Detail, error) {
	onStep(1, "", ui.StepRunning, "")
	command, err := gw.SendDevicePosition(ctx, id, open)
	if err != nil {
		onStep(1, "", ui.StepFailed, "")
		return nil, err
	}
	onStep(1, "", ui.StepComplete, fmt.Sprintf("closed %d%%", command.ClosedPercent))

	opts := gateway.DefaultVerificationOptions()
	opts.MaxRetries = retries

	onStep(2, "", ui.StepRunning, "")
	result := gateway.VerifyDevicePosition(ctx, gw, id, command.ClosedPercent, opts)
	if !result.Success {
		onStep(2, "", ui.StepFailed, fmt.Sprintf("%d attempt(s)", result.Attempts))
		return nil, fmt.Errorf("window %s did not reach closed %d%%: %w", id, command.ClosedPercent, result.Error)
	}
	onStep(2, "", ui.StepComplete, fmt.Sprintf("%d attempt(s)", result.Attempts))

	return []ui.Detail{
		{Key: "Window", Value: id.String()},
		{Key: "Position", Value: ui.PositionLabel(command.OpenPercent(), true)},
		{Key: "Closed", Value: fmt.Sprintf("%d%%", command.ClosedPercent)},
	}, nil
}

var openCmd = &cobra.Command{
	Use:   "open <window-id>",
	Short: "Open a window (tilt position, closed 37)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendWindow(cmd, args[0], (*gateway.Gateway).OpenDevice)
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <window-id>",
	Short: "Fully close a window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendWindow(cmd, args[0], (*gateway.Gateway).CloseDevice)
	},
}

type sendFunc func(g *gateway.Gateway, ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)

func sendWindow(cmd *cobra.Command, arg string, send sendFunc) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	command, err := send(a.gw, cmd.Context(), id)
	if err != nil {
		return err
	}
	printSent(a.printer, "Window "+id.String(), command)
	return nil
}

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Control every window of a room at once",
	Long: `Room commands address the gateway's room target, which moves every window
of the room with a single command.`,
}

var roomSetCmd = &cobra.Command{
	Use:   "set <room-id> <open%>",
	Short: "Move every window of a room to an open percentage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		open, err := gateway.ParseOpenPercent(args[1])
		if err != nil {
			return err
		}
		return sendRoom(cmd, args[0], func(g *gateway.Gateway, ctx context.Context, id gateway.ID) (gateway.PositionCommand, error) {
			return g.SendRoomPosition(ctx, id, open)
		})
	},
}

var roomOpenCmd = &cobra.Command{
	Use:   "open <room-id>",
	Short: "Open every window of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendRoom(cmd, args[0], (*gateway.Gateway).OpenRoom)
	},
}

var roomCloseCmd = &cobra.Command{
	Use:   "close <room-id>",
	Short: "Close every window of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendRoom(cmd, args[0], (*gateway.Gateway).CloseRoom)
	},
}

var roomPresetCmd = &cobra.Command{
	Use:   "preset <room-id> <name>",
	Short: "Apply a named preset to a room",
	Long: `Apply a named open percentage to every window of a room.

The defaults are view (63% open), privacy (19%) and favorite (50%); the
presets section of the config file replaces them.`,
	Example: `  normanctl room preset 3 privacy`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		name := config.PresetKey(args[1])
		open, ok := a.cfg.Presets[name]
		if !ok {
			return gateway.NewValidationError(fmt.Sprintf("unknown preset %q (available: %s)", name, presetNames(a.cfg.Presets)))
		}

		command, err := a.gw.SendRoomPosition(cmd.Context(), id, open)
		if err != nil {
			return err
		}
		printSent(a.printer, fmt.Sprintf("Room %s preset %s", id, name), command)
		return nil
	},
}

func sendRoom(cmd *cobra.Command, arg string, send sendFunc) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	command, err := send(a.gw, cmd.Context(), id)
	if err != nil {
		return err
	}
	printSent(a.printer, "Room "+id.String(), command)
	return nil
}

func presetNames(presets map[string]int) string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// printSent reports an accepted command in the selected output format.
func printSent(p *ui.Printer, target string, command gateway.PositionCommand) {
	switch outputFormat {
	case "json":
		_ = writeJSON(p.Writer(), map[string]any{
			"target_id":      command.TargetID,
			"scope":          command.Scope.String(),
			"closed_percent": command.ClosedPercent,
			"open_percent":   command.OpenPercent(),
			"sent_at":        time.Now().UTC().Format(time.RFC3339),
		})
	case "compact":
		p.Printf("%s: sent closed %d%% (%s)\n", target, command.ClosedPercent, ui.PositionLabel(command.OpenPercent(), true))
	default:
		p.PrintSuccess("Command sent",
			ui.Detail{Key: "Target", Value: target},
			ui.Detail{Key: "Scope", Value: command.Scope.String()},
			ui.Detail{Key: "Position", Value: ui.PositionLabel(command.OpenPercent(), true)},
			ui.Detail{Key: "Closed", Value: fmt.Sprintf("%d%%", command.ClosedPercent)},
		)
	}
}
