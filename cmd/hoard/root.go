package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/hoard/pkg/hoard/cache"
	"github.com/jamesainslie/hoard/pkg/hoard/config"
	"github.com/jamesainslie/hoard/pkg/hoard/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hoard",
		Short: "Inspect and manage grouped-file cache roots",
		Long: `Hoard maintains persistent, capacity-bounded LRU caches of grouped
files: each entry is a directory of files written and read together, with
recency encoded in the files' own modification times.

The CLI opens a cache root the same way an embedding application would,
so every command takes the root's exclusive lock for its duration.

Examples:
  hoard stats                 # Show entry count, size and capacity
  hoard ls                    # List entries in eviction order
  hoard get abc123            # List an entry's files
  hoard get abc123 00.jpg     # Write one file to stdout
  hoard put abc123 00.jpg     # Insert stdin as a new file
  hoard watch                 # Report external edits to the root`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/hoard/config.yaml)")
	rootCmd.PersistentFlags().StringP("root", "r", "", "cache root directory")
	rootCmd.PersistentFlags().StringP("capacity", "c", "", "cache capacity (e.g., 500MB, 10MiB)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log to stderr at debug level")

	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("capacity", rootCmd.PersistentFlags().Lookup("capacity"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "hoard"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "hoard"))
		}
	}

	viper.SetEnvPrefix("HOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("root", config.DefaultRoot())
	viper.SetDefault("capacity", config.DefaultCapacity)
	viper.SetDefault("logging.level", config.DefaultLogLevel)

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogging wires the logging system from the effective configuration.
func initLogging() error {
	cfg := logging.Config{
		Level: viper.GetString("logging.level"),
		Path:  viper.GetString("logging.path"),
	}
	if viper.GetBool("verbose") {
		cfg.ConsoleLevel = "debug"
	}
	return logging.Init(cfg)
}

// openCache opens the configured cache root, creating it if needed.
func openCache(ctx context.Context) (*cache.Cache, error) {
	if err := initLogging(); err != nil {
		return nil, err
	}

	root := viper.GetString("root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root %s: %w", root, err)
	}

	capacity, err := humanize.ParseBytes(viper.GetString("capacity"))
	if err != nil {
		return nil, fmt.Errorf("parsing capacity %q: %w", viper.GetString("capacity"), err)
	}

	c, err := cache.Open(ctx, root, capacity)
	if errors.Is(err, cache.ErrAlreadyLocked) {
		return nil, fmt.Errorf("cache root %s is in use by another process", root)
	}
	return c, err
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
