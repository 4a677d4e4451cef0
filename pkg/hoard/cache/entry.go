package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// Entry is the result of a cache lookup: either *Occupied or *Vacant.
// Callers type-switch on the concrete type.
type Entry interface {
	entry()
}

// NamedFile is an open read-only file handle together with its base name.
// The base name lets callers reconstruct named outputs without learning
// where the cache keeps them.
type NamedFile struct {
	*os.File
	name string
}

// Name returns the file's base name within its entry, shadowing
// os.File.Name which would leak the full path.
func (f NamedFile) Name() string {
	return f.name
}

// Occupied is a looked-up entry that exists on disk. Its files are open
// for reading and their recency has been refreshed.
type Occupied struct {
	cache *Cache
	path  string
	files []NamedFile
}

func (*Occupied) entry() {}

// Files returns the entry's files sorted by name. The caller owns the
// handles and closes them when done.
func (e *Occupied) Files() []NamedFile {
	return e.files
}

// Key returns the entry's cache key.
func (e *Occupied) Key() string {
	return filepath.Base(e.path)
}

// Vacant is a looked-up entry with no disk presence yet. Populate it with
// one or more InsertWith calls, or atomically with Stage.
type Vacant struct {
	cache *Cache
	path  string
}

func (*Vacant) entry() {}

// Key returns the entry's cache key.
func (e *Vacant) Key() string {
	return filepath.Base(e.path)
}

// InsertWith creates the named file inside the entry, hands a writable
// handle to write, and returns a read-only handle to the finished file.
// Names are unique per entry; creating an existing name fails.
//
// The file's bytes are registered with the cache once write succeeds,
// which may evict other entries to make room. If write fails, the
// partially written file is left on disk: entries are normally written as
// a logical group, and a half-written group is either completed by
// further inserts or evicted in due course. Use Stage for all-or-nothing
// population.
func (e *Vacant) InsertWith(name string, write func(f *os.File) error) (*os.File, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	// Concurrent inserts into the same new entry race on directory
	// creation; both must win.
	if err := os.Mkdir(e.path, dirPerm); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("creating entry directory %s: %w", e.path, err)
	}

	path := filepath.Join(e.path, name)
	size, err := writeFile(path, write)
	if err != nil {
		return nil, err
	}

	ro, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reopening %s: %w", path, err)
	}

	if err := e.cache.register(e.path, size); err != nil {
		_ = ro.Close()
		return nil, err
	}

	return ro, nil
}

// writeFile exclusively creates path, runs write against the handle,
// syncs the contents to durable storage, and returns the final byte
// length. The write handle is closed before returning.
func writeFile(path string, write func(f *os.File) error) (uint64, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}

	if err := file.Sync(); err != nil {
		return 0, fmt.Errorf("syncing %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("reading metadata for %s: %w", path, err)
	}

	return uint64(info.Size()), nil
}
