// Package lock provides an advisory, process-exclusive file lock.
//
// A cache root must only ever be mutated by one process at a time: the
// on-disk recency encoding and the in-memory size accounting both assume a
// single writer. The lock is anchored at a dedicated file inside the root
// and held for the lifetime of the cache that acquired it.
//
// The lock is advisory: it is only respected by other lock-aware processes
// and does not prevent raw filesystem edits.
package lock

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrAlreadyLocked is returned when another live process holds the lock.
// Callers use this to present "another instance is running" rather than a
// generic I/O failure.
var ErrAlreadyLocked = errors.New("lock already held by another process")

// Lock owns an open descriptor on the lock file together with its locked
// state. The descriptor and the state live in one struct so releasing can
// never observe a guard that outlives its file.
type Lock struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	locked bool
}

// Acquire opens (or creates) the lock file at path and attempts a
// non-blocking exclusive lock on it. It returns ErrAlreadyLocked if the
// lock is held elsewhere, including by another Lock in the same process.
func Acquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating lock file %s: %w", path, err)
	}

	if err := flock(file); err != nil {
		_ = file.Close()
		if errors.Is(err, ErrAlreadyLocked) {
			return nil, ErrAlreadyLocked
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return &Lock{file: file, path: path, locked: true}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and closes the lock file, then deletes it best-effort.
// Deletion failure is swallowed: a stale lock file with no active lock is
// harmless because the next Acquire can still lock it. Release is
// idempotent.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.locked {
		return nil
	}
	l.locked = false

	unlockErr := funlock(l.file)
	closeErr := l.file.Close()
	_ = os.Remove(l.path)

	if unlockErr != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", l.path, closeErr)
	}
	return nil
}
