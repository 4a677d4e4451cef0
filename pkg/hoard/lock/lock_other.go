//go:build !unix

package lock

import "os"

// flock is a no-op on platforms without flock(2). The lock degrades to an
// open file handle: cross-process exclusion is not enforced.
func flock(_ *os.File) error {
	return nil
}

func funlock(_ *os.File) error {
	return nil
}
