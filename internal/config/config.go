package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "normanctl"
	configFile = "config.yaml"
)

// fileMutex serializes Save within the process.
var fileMutex sync.Mutex

// GetConfigDir returns the per-user directory holding normanctl's files:
//   - Linux and other unixes: $XDG_CONFIG_HOME/normanctl, else ~/.config/normanctl
//   - macOS: ~/.config/normanctl
//   - Windows: %LOCALAPPDATA%\normanctl, else %USERPROFILE%\AppData\Local\normanctl
func GetConfigDir() (string, error) {
	base, err := userBaseDir(runtime.GOOS, os.Getenv)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

func userBaseDir(goos string, getenv func(string) string) (string, error) {
	if goos == "windows" {
		if dir := getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		if profile := getenv("USERPROFILE"); profile != "" {
			return filepath.Join(profile, "AppData", "Local"), nil
		}
		return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
	}
	if dir := getenv("XDG_CONFIG_HOME"); dir != "" && goos != "darwin" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config"), nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// resolvePath maps "" to the default config path.
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	path, err := GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return path, nil
}

// Load reads the configuration at path, or the default path when path is
// empty. A missing file yields the defaults. Environment overrides are
// applied on top and the result is validated.
func Load(path string) (*Config, error) {
	cfg, path, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFile reads the configuration file at path (default path when empty)
// without environment overrides. Commands that rewrite the file use it so
// NORMAN_* values never end up on disk.
func LoadFile(path string) (*Config, error) {
	cfg, _, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func readConfig(path string) (*Config, string, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, "", err
	}
	cfg, err := loadFile(path)
	return cfg, path, err
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if err := cfg.normalizePresets(); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to path (default path when empty) through
// a temporary file and a rename, readable by the owner only.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	body, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data := fmt.Appendf(nil, fileHeader, path)
	data = append(data, body...)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

const fileHeader = `# normanctl configuration
# Prefer gateway.password_file (or NORMAN_PASSWORD) over an inline password.
#
# Location: %s

`
