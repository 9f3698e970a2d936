package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/muurk/normanctl/internal/config"
	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/logging"
	"github.com/muurk/normanctl/internal/tui"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of windows and rooms",
	Long: `Open an interactive dashboard that refreshes on the configured polling
interval and shortly after every command.

Logs go to normanctl.log in the config directory while the dashboard runs.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := logToFile(); err != nil {
		return err
	}

	coord := coordinator.New(a.gw, coordinator.Options{
		Interval:     a.cfg.Polling.Interval,
		RefreshDelay: a.cfg.Polling.RefreshDelay,
		Presets:      a.cfg.Presets,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()

	err = tui.Run(ctx, coord)
	cancel()
	<-done
	return err
}

// logToFile moves logging off the terminal the dashboard draws on.
func logToFile() error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := logging.InitializeTo(logLevel, filepath.Join(dir, "normanctl.log")); err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	return nil
}
