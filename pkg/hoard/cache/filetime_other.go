//go:build !unix

package cache

import (
	"os"
	"time"
)

// setFileMtime updates the file's modification time by path. Platforms
// without futimens fall back to os.Chtimes.
func setFileMtime(f *os.File, t time.Time) error {
	return os.Chtimes(f.Name(), time.Time{}, t)
}
