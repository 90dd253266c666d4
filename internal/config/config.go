package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/tray-cli/internal/manager"
)

const (
	DefaultConfigDir  = ".config/tray"
	DefaultConfigFile = "config.yaml"
)

// ErrNoConfig is returned by LoadConfig when no path is given and no
// config file exists at the default location.
var ErrNoConfig = errors.New("no config file found")

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	o := manager.DefaultOptions()
	return &Config{
		Settings: Settings{
			RehideInterval: Duration(15 * time.Second),
		},
		Cache: CacheConfig{
			RefreshInterval: Duration(o.RefreshInterval),
			MoveCooldown:    Duration(o.MoveCooldown),
		},
		Move: MoveConfig{
			Attempts:          o.MoveAttempts,
			InitialTimeout:    Duration(o.InitialTimeout),
			MinTimeout:        Duration(o.MinTimeout),
			MaxTimeout:        Duration(o.MaxTimeout),
			QuiescenceTimeout: Duration(o.QuiescenceTimeout),
		},
		Click: ClickConfig{
			Timeout: Duration(o.ClickTimeout),
		},
		TempShow: TempShowConfig{
			SettleDelay:           Duration(o.SettleDelay),
			MaxRehideAttempts:     o.MaxRehideAttempts,
			InterfaceRehideFactor: o.InterfaceRehideFactor,
		},
	}
}

// LoadConfig loads configuration from the specified path or default location
// If path is empty, uses ~/.config/tray/config.yaml, then config.json
// Keys missing from the file keep their default values
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		// Try YAML first, then JSON
		yamlPath := filepath.Join(home, DefaultConfigDir, "config.yaml")
		jsonPath := filepath.Join(home, DefaultConfigDir, "config.json")

		if _, err := os.Stat(yamlPath); err == nil {
			path = yamlPath
		} else if _, err := os.Stat(jsonPath); err == nil {
			path = jsonPath
		} else {
			return nil, fmt.Errorf("%w at %s or %s", ErrNoConfig, yamlPath, jsonPath)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadConfigFromBytes(data, formatOf(path))
}

// LoadConfigFromBytes loads configuration from raw bytes
// format should be "yaml" or "json"
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	cfg := DefaultConfig()

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Write saves cfg to path in the format implied by its extension,
// creating parent directories as needed
func Write(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
}

// ManagerOptions converts the tuning sections to engine options
func (c *Config) ManagerOptions() manager.Options {
	o := manager.DefaultOptions()
	o.MoveAttempts = c.Move.Attempts
	o.InitialTimeout = c.Move.InitialTimeout.D()
	o.MinTimeout = c.Move.MinTimeout.D()
	o.MaxTimeout = c.Move.MaxTimeout.D()
	o.QuiescenceTimeout = c.Move.QuiescenceTimeout.D()
	o.ClickTimeout = c.Click.Timeout.D()
	o.SettleDelay = c.TempShow.SettleDelay.D()
	o.MaxRehideAttempts = c.TempShow.MaxRehideAttempts
	o.InterfaceRehideFactor = c.TempShow.InterfaceRehideFactor
	o.RefreshInterval = c.Cache.RefreshInterval.D()
	o.MoveCooldown = c.Cache.MoveCooldown.D()
	return o
}
