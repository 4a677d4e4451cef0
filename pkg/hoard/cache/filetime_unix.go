//go:build unix

package cache

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// setFileMtime updates the file's modification time through its open
// descriptor, leaving the access time untouched. Operating on the handle
// avoids a race with the entry being renamed or evicted underneath us.
func setFileMtime(f *os.File, t time.Time) error {
	times := []unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(t.UnixNano()),
	}
	return unix.Futimens(int(f.Fd()), times)
}
