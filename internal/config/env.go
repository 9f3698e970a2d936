package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvHost         = "NORMAN_HOST"
	EnvPassword     = "NORMAN_PASSWORD"
	EnvPasswordFile = "NORMAN_PASSWORD_FILE"
	EnvPollInterval = "NORMAN_POLL_INTERVAL"
	EnvHTTPAddr     = "NORMAN_HTTP_ADDR"
	EnvMQTTBroker   = "NORMAN_MQTT_BROKER"
	EnvMQTTUsername = "NORMAN_MQTT_USERNAME"
	EnvMQTTPassword = "NORMAN_MQTT_PASSWORD"
)

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given) without overriding variables that are already set. Missing files
// are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with NORMAN_* environment variables.
func ApplyEnv(c *Config) error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Gateway.Host = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Gateway.Password = v
		c.Gateway.PasswordFile = ""
	}
	if v := os.Getenv(EnvPasswordFile); v != "" {
		c.Gateway.PasswordFile = v
	}
	if v := os.Getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		c.Polling.Interval = d
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.Bridge.HTTPAddr = v
	}
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		c.Bridge.MQTT.Broker = v
	}
	if v := os.Getenv(EnvMQTTUsername); v != "" {
		c.Bridge.MQTT.Username = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" {
		c.Bridge.MQTT.Password = v
	}
	return nil
}
