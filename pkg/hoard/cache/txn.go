package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrTxnFinished is returned when a staged transaction is used after
// Commit or Discard.
var ErrTxnFinished = errors.New("transaction already finished")

// Txn stages a multi-file entry in a hidden sibling directory and
// publishes it with a single rename, so a failed or abandoned population
// never leaves a half-written entry visible. The trade-off against
// InsertWith is that files only become readable at Commit.
type Txn struct {
	cache    *Cache
	dest     string
	dir      string
	size     uint64
	finished bool
}

// Stage begins a staged transaction for this vacant entry. Files added
// through the transaction live under the cache's staging area until
// Commit renames them into place.
func (e *Vacant) Stage() (*Txn, error) {
	staging := filepath.Join(e.cache.root, stagingDirName)
	if err := os.MkdirAll(staging, dirPerm); err != nil {
		return nil, fmt.Errorf("creating staging area %s: %w", staging, err)
	}

	dir := filepath.Join(staging, uuid.NewString())
	if err := os.Mkdir(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating staging directory %s: %w", dir, err)
	}

	return &Txn{cache: e.cache, dest: e.path, dir: dir}, nil
}

// Add creates the named file in the staging directory, following the same
// per-file steps as InsertWith: exclusive create, caller write, sync,
// size capture. Nothing is registered with the cache until Commit.
func (t *Txn) Add(name string, write func(f *os.File) error) error {
	if t.finished {
		return ErrTxnFinished
	}
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	size, err := writeFile(filepath.Join(t.dir, name), write)
	if err != nil {
		return err
	}

	t.size += size
	return nil
}

// Commit atomically renames the staged directory onto the entry path and
// registers the accumulated size, evicting older entries as needed. It
// fails if the entry came into existence since the lookup.
func (t *Txn) Commit() error {
	if t.finished {
		return ErrTxnFinished
	}

	// The transaction stays open on rename failure so the caller can
	// still Discard the staged files.
	if err := os.Rename(t.dir, t.dest); err != nil {
		return fmt.Errorf("publishing %s: %w", t.dest, err)
	}
	t.finished = true

	return t.cache.register(t.dest, t.size)
}

// Discard removes the staged directory and everything added to it. The
// entry path is untouched.
func (t *Txn) Discard() error {
	if t.finished {
		return nil
	}
	t.finished = true

	if err := os.RemoveAll(t.dir); err != nil {
		return fmt.Errorf("discarding staged directory %s: %w", t.dir, err)
	}
	return nil
}
