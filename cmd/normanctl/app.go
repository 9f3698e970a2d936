package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/muurk/normanctl/internal/config"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/ui"
)

// app is what a command needs to talk to the gateway.
type app struct {
	cfg     *config.Config
	client  *gateway.Client
	gw      *gateway.Gateway
	printer *ui.Printer
}

var errNoHost = errors.New("no gateway host configured: use --host, set NORMAN_HOST or run 'normanctl login --host <ip>'")

// loadConfig reads .env and the config file, then applies the global flags.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if hostFlag != "" {
		cfg.Gateway.Host = hostFlag
	}
	if passwordFlag != "" {
		cfg.Gateway.Password = passwordFlag
		cfg.Gateway.PasswordFile = ""
	}
	if appVersion != "" {
		cfg.Gateway.AppVersion = appVersion
	}
	return cfg, nil
}

// newClient builds a session client from cfg. An empty password means the
// factory default.
func newClient(cfg *config.Config) (*gateway.Client, error) {
	if cfg.Gateway.Host == "" {
		return nil, errNoHost
	}
	password, err := cfg.Gateway.ResolvePassword()
	if err != nil {
		return nil, err
	}
	client := gateway.NewClient(cfg.Gateway.Host, password)
	client.SetTimeout(cfg.Gateway.RequestTimeout)
	if cfg.Gateway.AppVersion != "" {
		client.AppVersion = cfg.Gateway.AppVersion
	}
	return client, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		client:  client,
		gw:      gateway.New(client),
		printer: ui.NewPrinter(cmd.OutOrStdout()),
	}, nil
}

func (a *app) close() {
	a.client.Close()
}

// parseID rejects empty ids; anything else is passed to the gateway as given.
func parseID(arg string) (gateway.ID, error) {
	if arg == "" {
		return "", gateway.NewValidationError("id must not be empty")
	}
	return gateway.ID(arg), nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
