// Norman-bridge keeps a Norman gateway's state in memory and exposes it to
// home automation systems.
//
// It polls the gateway, serves a JSON API with Prometheus metrics and a
// WebSocket state feed, and optionally mirrors every window and room to an
// MQTT broker where commands can also be received.
//
// Usage:
//
//	norman-bridge serve [flags]
//
// See 'norman-bridge serve --help' for available options.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/normanctl/internal/config"
	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/logging"
	"github.com/muurk/normanctl/internal/metrics"
	"github.com/muurk/normanctl/internal/mqttbridge"
	"github.com/muurk/normanctl/internal/server"
	"github.com/muurk/normanctl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "norman-bridge",
	Short: "Norman Blinds gateway bridge",
	Long: `A long running bridge between a Norman gateway and home automation.

The bridge polls the gateway and serves the latest state over HTTP, as
Prometheus metrics and over MQTT. Commands sent through the API or MQTT are
forwarded to the gateway and followed by a state refresh.

For one-off commands and the interactive dashboard use 'normanctl'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	configPath string
	addr       string
	broker     string
	logLevel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge",
	Long: `Start polling the gateway and serving the bridge API.

Settings come from the config file written by 'normanctl login', NORMAN_*
environment variables (a .env file in the working directory is read too) and
the flags below. HTTPS is served when bridge.tls_cert and bridge.tls_key are
both set.

Endpoints:
  GET  /health                       bridge and gateway health
  GET  /api/state                    every window and room
  GET  /api/windows/{id}             one window
  GET  /api/rooms/{id}               one room
  POST /api/windows/{id}/position    {"open": 50} or {"action": "open|close"}
  POST /api/rooms/{id}/position      {"open": 50}, {"action": ...} or {"preset": "view"}
  GET  /metrics                      Prometheus metrics
  GET  /ws                           state feed (one JSON message per refresh)`,
	Example: `  # Serve on the configured address
  norman-bridge serve

  # Custom address and an MQTT broker
  norman-bridge serve --addr :9090 --mqtt-broker tcp://localhost:1883

  # Verbose logging
  norman-bridge serve --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: OS config dir)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default: bridge.http_addr)")
	serveCmd.Flags().StringVar(&broker, "mqtt-broker", "", "MQTT broker URL (default: bridge.mqtt.broker, disabled when empty)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Bridge.HTTPAddr = addr
	}
	if broker != "" {
		cfg.Bridge.MQTT.Broker = broker
	}
	if cfg.Gateway.Host == "" {
		return errors.New("no gateway host configured: set NORMAN_HOST or run 'normanctl login --host <ip>'")
	}

	password, err := cfg.Gateway.ResolvePassword()
	if err != nil {
		return err
	}
	client := gateway.NewClient(cfg.Gateway.Host, password)
	client.SetTimeout(cfg.Gateway.RequestTimeout)
	if cfg.Gateway.AppVersion != "" {
		client.AppVersion = cfg.Gateway.AppVersion
	}
	defer client.Close()

	// The collector reads snapshots from the coordinator it counts commands for.
	var collector *metrics.Collector
	coord := coordinator.New(gateway.New(client), coordinator.Options{
		Interval:     cfg.Polling.Interval,
		RefreshDelay: cfg.Polling.RefreshDelay,
		Presets:      cfg.Presets,
		OnCommand: func(c gateway.PositionCommand, err error) {
			collector.ObserveCommand(c, err)
		},
	})
	collector = metrics.NewCollector(coord)

	srv, err := server.New(&server.Config{
		Addr:     cfg.Bridge.HTTPAddr,
		CertPath: cfg.Bridge.TLSCert,
		KeyPath:  cfg.Bridge.TLSKey,
	}, coord, metrics.NewRegistry(collector))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logging.Info("Starting bridge",
		zap.String("version", version.Version),
		zap.String("gateway", client.BaseURL),
		zap.Duration("interval", cfg.Polling.Interval),
		zap.Bool("mqtt", cfg.Bridge.MQTT.Broker != ""),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.Bridge.MQTT.Broker != "" {
		bridge := mqttbridge.New(cfg.Bridge.MQTT, coord)
		if err := bridge.Start(ctx); err != nil {
			return err
		}
		defer bridge.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := coord.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Start returns once the server has shut down; stop polling with it.
		defer cancel()
		return srv.Start(ctx)
	})
	return g.Wait()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Line("norman-bridge"))
	},
}
