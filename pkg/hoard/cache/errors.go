package cache

import (
	"errors"

	"github.com/jamesainslie/hoard/pkg/hoard/lock"
)

// ErrAlreadyLocked is returned by Open when another live cache holds the
// root. Re-exported from the lock package so callers need only this one.
var ErrAlreadyLocked = lock.ErrAlreadyLocked

var (
	// ErrInvalidKey is returned when a cache key fails validation.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrInvalidName is returned when a file name fails validation.
	ErrInvalidName = errors.New("invalid file name")

	// ErrStructure is returned by Open when the on-disk layout violates
	// the <key>/<name> invariant. The cache directory is considered
	// foreign or corrupt and construction aborts.
	ErrStructure = errors.New("unexpected cache directory structure")

	// ErrUntracked is returned when an entry directory exists on disk but
	// its key is missing from the recency index. This indicates external
	// interference with the cache root.
	ErrUntracked = errors.New("entry missing from recency index")
)
