//go:build unix

package lock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// flock takes a non-blocking exclusive lock on the file.
// flock(2) locks belong to the open file description, so a second Acquire
// in the same process opens a fresh descriptor and fails the same way a
// second process would.
func flock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
		return ErrAlreadyLocked
	}
	return err
}

// funlock drops the lock held on the file.
func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
