// Package config provides user configuration for normanctl and norman-bridge.
//
// Settings live in a YAML file stored in a platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/normanctl/config.yaml or $HOME/.config/normanctl/config.yaml
//   - macOS: $HOME/.config/normanctl/config.yaml
//   - Windows: %LOCALAPPDATA%\normanctl\config.yaml
//
// NORMAN_* environment variables override the file; LoadDotEnv pulls them
// from a .env file first when one exists.
//
// # Example
//
//	version: 1
//	gateway:
//	  host: 192.168.1.50
//	  password_file: /run/secrets/norman
//	polling:
//	  interval: 30s
//	  refresh_delay: 5s
//	presets:
//	  view: 63
//	  privacy: 19
//	bridge:
//	  http_addr: ":9280"
//	  mqtt:
//	    broker: tcp://localhost:1883
//	    topic_prefix: norman
//
// Only configuration is stored here. Gateway state is always read fresh.
package config
