package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Defaults.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultRefreshDelay = 5 * time.Second
	DefaultHTTPAddr     = ":9280"
	DefaultTopicPrefix  = "norman"
	DefaultMQTTQoS      = 1
)

// DefaultPresets are the room presets offered when the config defines none.
// Values are open percentages.
var DefaultPresets = map[string]int{
	"view":     63,
	"privacy":  19,
	"favorite": 50,
}

// Config represents the entire user configuration file.
type Config struct {
	Version int            `yaml:"version"`
	Gateway GatewayConfig  `yaml:"gateway"`
	Polling PollingConfig  `yaml:"polling"`
	Presets map[string]int `yaml:"presets,omitempty"` // name -> open percentage
	Bridge  BridgeConfig   `yaml:"bridge"`
}

// GatewayConfig describes how to reach and log in to the gateway.
type GatewayConfig struct {
	Host           string        `yaml:"host"`
	Password       string        `yaml:"password,omitempty"`      // prefer password_file
	PasswordFile   string        `yaml:"password_file,omitempty"` // file holding the password
	AppVersion     string        `yaml:"app_version,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// PollingConfig controls the refresh coordinator.
type PollingConfig struct {
	Interval     time.Duration `yaml:"interval,omitempty"`
	RefreshDelay time.Duration `yaml:"refresh_delay,omitempty"` // wait after a command before re-reading state
}

// BridgeConfig configures norman-bridge.
type BridgeConfig struct {
	HTTPAddr string     `yaml:"http_addr,omitempty"`
	TLSCert  string     `yaml:"tls_cert,omitempty"` // serve HTTPS when both are set
	TLSKey   string     `yaml:"tls_key,omitempty"`
	MQTT     MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the MQTT bridge. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker,omitempty"` // e.g. tcp://localhost:1883
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// New creates a Config with default values.
func New() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.Polling.Interval == 0 {
		c.Polling.Interval = DefaultPollInterval
	}
	if c.Polling.RefreshDelay == 0 {
		c.Polling.RefreshDelay = DefaultRefreshDelay
	}
	if c.Gateway.RequestTimeout == 0 {
		c.Gateway.RequestTimeout = 10 * time.Second
	}
	if len(c.Presets) == 0 {
		c.Presets = make(map[string]int, len(DefaultPresets))
		for k, v := range DefaultPresets {
			c.Presets[k] = v
		}
	}
	if c.Bridge.HTTPAddr == "" {
		c.Bridge.HTTPAddr = DefaultHTTPAddr
	}
	if c.Bridge.MQTT.TopicPrefix == "" {
		c.Bridge.MQTT.TopicPrefix = DefaultTopicPrefix
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.Polling.Interval < time.Second {
		return fmt.Errorf("polling.interval must be at least 1s, got %s", c.Polling.Interval)
	}
	if c.Polling.RefreshDelay < 0 {
		return fmt.Errorf("polling.refresh_delay must not be negative")
	}
	for name, open := range c.Presets {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("preset names must not be empty")
		}
		if open < 0 || open > 100 {
			return fmt.Errorf("preset %q: open percentage must be 0-100, got %d", name, open)
		}
	}
	if (c.Bridge.TLSCert == "") != (c.Bridge.TLSKey == "") {
		return fmt.Errorf("bridge.tls_cert and bridge.tls_key must be set together")
	}
	if c.Bridge.MQTT.QoS > 2 {
		return fmt.Errorf("bridge.mqtt.qos must be 0, 1 or 2, got %d", c.Bridge.MQTT.QoS)
	}
	return nil
}

// PresetKey is the canonical form of a preset name. Preset names are
// case-insensitive.
func PresetKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizePresets rewrites preset names to their canonical form. Two names
// that differ only in case are an error.
func (c *Config) normalizePresets() error {
	if len(c.Presets) == 0 {
		return nil
	}
	presets := make(map[string]int, len(c.Presets))
	for name, open := range c.Presets {
		key := PresetKey(name)
		if _, dup := presets[key]; dup {
			return fmt.Errorf("preset %q is defined more than once", key)
		}
		presets[key] = open
	}
	c.Presets = presets
	return nil
}

// ResolvePassword returns the gateway password: the password file wins over
// the inline password. An empty result means the factory default.
func (g GatewayConfig) ResolvePassword() (string, error) {
	if g.PasswordFile != "" {
		data, err := os.ReadFile(g.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return g.Password, nil
}
