package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timfallmk/filesize/internal/logging"
)

const appName = "filesize"

// Config is the on-disk configuration of the filesize command.
type Config struct {
	Output  OutputConfig   `yaml:"output"`
	Watch   WatchConfig    `yaml:"watch"`
	Logging logging.Config `yaml:"logging"`
}

// OutputConfig controls how measurements are printed.
type OutputConfig struct {
	Format string `yaml:"format"` // "text", "json", "table"
	Units  string `yaml:"units"`  // "bytes", "iec", "si"
	// Volume appends the filesystem type and allocation unit of each file.
	Volume    bool `yaml:"volume"`
	KeepGoing bool `yaml:"keep_going"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	// Initial reports every file once before waiting for changes.
	Initial bool `yaml:"initial"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format:    "text",
			Units:     "bytes",
			Volume:    false,
			KeepGoing: false,
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
			Initial:  true,
		},
		Logging: logging.DefaultConfig(),
	}
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = getDefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) SaveConfig(path string) error {
	if path == "" {
		path = getDefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text":  true,
		"json":  true,
		"table": true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format: %s", c.Output.Format)
	}

	validUnits := map[string]bool{
		"bytes": true,
		"iec":   true,
		"si":    true,
	}
	if !validUnits[c.Output.Units] {
		return fmt.Errorf("invalid output units: %s", c.Output.Units)
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch debounce must not be negative")
	}

	if _, err := logging.ParseLevel(string(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch c.Logging.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}

func getDefaultConfigPath() string {
	if configDir := os.Getenv("XDG_CONFIG_HOME"); configDir != "" {
		return filepath.Join(configDir, appName, "config.yaml")
	}

	if homeDir := os.Getenv("HOME"); homeDir != "" {
		return filepath.Join(homeDir, ".config", appName, "config.yaml")
	}

	return "./config.yaml"
}

// GetConfigPaths lists the locations searched for a config file, in order.
func GetConfigPaths() []string {
	return []string{
		getDefaultConfigPath(),
		filepath.Join("/etc", appName, "config.yaml"),
		filepath.Join("/usr/local/etc", appName, "config.yaml"),
		filepath.Join(".", "configs", "config.yaml"),
	}
}

func FindConfig() (string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return absPath, nil
		}
	}
	return "", fmt.Errorf("no config file found in standard locations")
}
