package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/normanctl/internal/config"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/ui"
)

var (
	savePassword bool
	forceInit    bool
)

func init() {
	loginCmd.Flags().BoolVar(&savePassword, "save-password", false, "Store the password in the config file")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file without asking")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check the gateway credentials and remember the host",
	Long: `Log in to the gateway and read its state to prove the session works, then
save the host to the config file so later commands can omit --host.

Without --password, NORMAN_PASSWORD or a configured password the factory
password is tried first; on a terminal you are prompted when it is rejected.`,
	Example: `  normanctl login --host 192.168.1.50
  normanctl login --host 192.168.1.50 --password secret --save-password`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	state, err := loginAndFetch(cmd.Context(), client)
	if gateway.IsAuthError(err) && passwordFlag == "" {
		password, perr := ui.PromptPassword(cmd.ErrOrStderr(), "Gateway password: ")
		if perr != nil && !errors.Is(perr, ui.ErrNotTerminal) {
			return perr
		}
		if perr == nil {
			client.Password = password
			passwordFlag = password
			state, err = loginAndFetch(cmd.Context(), client)
		}
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fileCfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	fileCfg.Gateway.Host = cfg.Gateway.Host
	if appVersion != "" {
		fileCfg.Gateway.AppVersion = appVersion
	}
	if savePassword && passwordFlag != "" {
		fileCfg.Gateway.Password = passwordFlag
		fileCfg.Gateway.PasswordFile = ""
	}
	if err := fileCfg.Save(configPath); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path, _ = config.GetConfigPath()
	}
	printer.PrintSuccess("Logged in",
		ui.Detail{Key: "Gateway", Value: client.BaseURL},
		ui.Detail{Key: "Rooms", Value: fmt.Sprint(len(gateway.RoomIDs(state)))},
		ui.Detail{Key: "Windows", Value: fmt.Sprint(len(state.Entries))},
		ui.Detail{Key: "Saved to", Value: path},
	)
	return nil
}

func loginAndFetch(ctx context.Context, client *gateway.Client) (*gateway.CombinedState, error) {
	if err := client.Login(ctx, true); err != nil {
		return nil, err
	}
	return gateway.New(client).FetchCombinedState(ctx)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the normanctl config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil && !forceInit {
			if !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Overwrite config", path+" already exists") {
				return nil
			}
		}

		cfg := config.New()
		cfg.Gateway.Host = hostFlag
		if cfg.Gateway.Host == "" {
			host, err := ui.PromptLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Gateway host", "")
			if err != nil {
				return err
			}
			cfg.Gateway.Host = host
		}
		if err := cfg.Save(path); err != nil {
			return err
		}

		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Config written",
			ui.Detail{Key: "Path", Value: path},
			ui.Detail{Key: "Gateway", Value: valueOrDash(cfg.Gateway.Host)},
		)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying the config file, NORMAN_* environment
variables and command line flags. Passwords are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		masked := *cfg
		if masked.Gateway.Password != "" {
			masked.Gateway.Password = "***"
		}
		if masked.Bridge.MQTT.Password != "" {
			masked.Bridge.MQTT.Password = "***"
		}

		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), masked)
		}
		data, err := yaml.Marshal(&masked)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
