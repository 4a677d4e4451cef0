package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultCapacity bounds the occupied bytes of a cache root.
	DefaultCapacity = "10MiB"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"
)

// DefaultRoot returns the default cache root under XDG cache home.
func DefaultRoot() string {
	return filepath.Join(xdg.CacheHome, "hoard")
}
