// Package config loads hoard's CLI configuration from file and
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Root     string        `mapstructure:"root"`
	Capacity string        `mapstructure:"capacity"`
	Logging  LoggingConfig `mapstructure:"logging"`
}

// CapacityBytes parses the configured capacity into bytes.
// Accepts humanized forms like "500MB" or "10MiB".
func (c *Config) CapacityBytes() (uint64, error) {
	bytes, err := humanize.ParseBytes(c.Capacity)
	if err != nil {
		return 0, fmt.Errorf("parsing capacity %q: %w", c.Capacity, err)
	}
	return bytes, nil
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/hoard/config.yaml
//   - $HOME/.config/hoard/config.yaml
//
// Environment variables are prefixed with HOARD_ (e.g., HOARD_CAPACITY).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "hoard"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "hoard"))

	v.SetEnvPrefix("HOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", DefaultRoot())
	v.SetDefault("capacity", DefaultCapacity)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means use logging.DefaultLogPath
	v.SetDefault("logging.components", map[string]string{
		"cache": "info",
		"watch": "info",
	})
}
