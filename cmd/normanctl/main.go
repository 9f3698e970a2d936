// Normanctl controls Norman motorized window coverings through their gateway.
//
// It reads window and room state, moves single windows or whole rooms, and
// offers a live dashboard. The gateway is reached over the local network;
// no cloud account is involved.
//
// Usage:
//
//	normanctl [command] [flags]
//
// See 'normanctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/normanctl/internal/logging"
	"github.com/muurk/normanctl/internal/ui"
	"github.com/muurk/normanctl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

// Global flags
var (
	hostFlag     string
	passwordFlag string
	configPath   string
	outputFormat string
	logLevel     string
	appVersion   string
)

var rootCmd = &cobra.Command{
	Use:   "normanctl",
	Short: "Norman Blinds gateway control",
	Long: `A command line client for Norman motorized window coverings.

Talks to the Norman gateway on your local network to read window and room
positions and to move single windows or whole rooms.

The gateway host comes from --host, NORMAN_HOST or the config file written by
'normanctl login'.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		switch outputFormat {
		case "detailed", "compact", "json":
		default:
			return fmt.Errorf("invalid --format %q (use detailed, compact or json)", outputFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Gateway host or IP address")
	rootCmd.PersistentFlags().StringVar(&passwordFlag, "password", "", "Gateway password (default: config, NORMAN_PASSWORD or factory password)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent by default")
	rootCmd.PersistentFlags().StringVar(&appVersion, "app-version", "", "App version string sent at login")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Line("normanctl"))
	},
}

// printError reports a failed command: a failure box on terminals, one line otherwise.
func printError(err error) {
	if ui.IsTerminal() {
		ui.NewPrinter(os.Stderr).PrintFailure("normanctl", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
