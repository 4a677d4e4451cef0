// Package cache implements a persistent, capacity-bounded LRU cache of
// grouped files.
//
// Each entry is one subdirectory of the cache root holding one or more
// named files that are created and read together, such as the set of
// thumbnails generated for a single source item. Recency is encoded in
// the files' own modification times: it is refreshed on read and on
// write, and rebuilt from disk when a cache is reopened, so no separate
// index file exists to drift out of sync. Eviction removes whole entry
// directories, oldest first, to keep the occupied bytes within capacity.
//
// A cache root is owned by at most one live Cache at a time, enforced by
// an advisory file lock. A Cache is safe for concurrent use by multiple
// goroutines.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/hoard/pkg/hoard/lock"
	"github.com/jamesainslie/hoard/pkg/hoard/logging"
	"github.com/jamesainslie/hoard/pkg/hoard/walker"
)

const (
	// LockFileName is the advisory lock file inside the cache root.
	LockFileName = ".lock"

	// stagingDirName holds in-flight staged transactions. Dotted names
	// can never collide with entry keys.
	stagingDirName = ".staging"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Cache is a grouped-file LRU cache rooted at a single directory.
type Cache struct {
	lk       *lock.Lock
	root     string
	capacity uint64

	mu    sync.Mutex
	index *lruIndex
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	walker walker.Walker
}

// WithWalker overrides the directory enumerator used by the recovery
// scan. The default walks in parallel with fastwalk.
func WithWalker(w walker.Walker) Option {
	return func(o *options) {
		o.walker = w
	}
}

// Open acquires exclusive ownership of root, rebuilds the recency index
// from the files already on disk, and returns a ready cache.
//
// It returns ErrAlreadyLocked if another live cache owns the root,
// including one in the same process, and ErrStructure if the directory
// layout is not one flat directory of files per entry.
func Open(ctx context.Context, root string, capacity uint64, opts ...Option) (*Cache, error) {
	o := options{walker: walker.NewFast()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.Get("cache")

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	lk, err := lock.Acquire(filepath.Join(abs, LockFileName))
	if err != nil {
		return nil, err
	}

	// Resolve symlinks so index paths and walked paths agree.
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		_ = lk.Release()
		return nil, fmt.Errorf("canonicalizing root %s: %w", abs, err)
	}

	if swept, err := sweepStaging(canon); err != nil {
		_ = lk.Release()
		return nil, err
	} else if swept > 0 {
		logger.Warn("removed stale staging directories", "count", swept)
	}

	recovered, err := scanRoot(ctx, o.walker, canon)
	if err != nil {
		_ = lk.Release()
		return nil, err
	}

	index := newLRUIndex()
	for _, entry := range recovered {
		index.add(entry.path, entry.size)
	}

	logger.Debug("cache opened",
		"root", canon,
		"capacity", humanize.IBytes(capacity),
		"entries", index.len(),
		"size", humanize.IBytes(index.total))

	return &Cache{
		lk:       lk,
		root:     canon,
		capacity: capacity,
		index:    index,
	}, nil
}

// Close releases the cache's lock on its root. The cache must not be used
// afterwards.
func (c *Cache) Close() error {
	return c.lk.Release()
}

// Root returns the canonicalized cache root.
func (c *Cache) Root() string {
	return c.root
}

// Capacity returns the configured capacity in bytes.
func (c *Cache) Capacity() uint64 {
	return c.capacity
}

// Size returns the total occupied bytes. The value is an instantaneous
// snapshot; concurrent inserts and evictions may change it immediately.
func (c *Cache) Size() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.total
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.len()
}

// EntryInfo describes one tracked entry for inspection.
type EntryInfo struct {
	Key  string
	Size uint64
}

// Entries returns the tracked entries in eviction order, oldest first.
// Like Size, this is an advisory snapshot.
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := make([]EntryInfo, 0, c.index.len())
	for _, entry := range c.index.oldestFirst() {
		infos = append(infos, EntryInfo{
			Key:  filepath.Base(entry.path),
			Size: entry.size,
		})
	}
	return infos
}

// Entry looks up key and returns either an *Occupied entry exposing the
// files already on disk or a *Vacant entry ready for population.
//
// Looking up an occupied entry refreshes its recency: the files' on-disk
// modification times move to now and the key moves to the
// most-recently-used index position.
func (c *Cache) Entry(key string) (Entry, error) {
	if !validName(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	path := filepath.Join(c.root, key)

	dirents, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Vacant{cache: c, path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading entry directory %s: %w", path, err)
	}

	return c.occupied(path, dirents)
}

// occupied opens every regular file in the entry, refreshes their
// modification times, and re-ranks the key as most recently used.
func (c *Cache) occupied(path string, dirents []os.DirEntry) (*Occupied, error) {
	now := time.Now()

	files := make([]NamedFile, 0, len(dirents))
	var filesMu sync.Mutex

	var g errgroup.Group
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		name := d.Name()
		g.Go(func() error {
			filePath := filepath.Join(path, name)
			file, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("opening %s: %w", filePath, err)
			}
			if err := setFileMtime(file, now); err != nil {
				_ = file.Close()
				return fmt.Errorf("refreshing mtime of %s: %w", filePath, err)
			}
			filesMu.Lock()
			files = append(files, NamedFile{File: file, name: name})
			filesMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeAll(files)
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	c.mu.Lock()
	tracked := c.index.touch(path)
	c.mu.Unlock()

	if !tracked {
		// Disk and index disagree: the directory appeared without going
		// through this cache. Surface it instead of adopting silently.
		closeAll(files)
		logging.Get("cache").Error("entry directory not tracked by index", "path", path)
		return nil, fmt.Errorf("entry %s: %w", path, ErrUntracked)
	}

	return &Occupied{cache: c, path: path, files: files}, nil
}

// register adds size to path's accounting, evicting other entries oldest
// first when the new bytes do not fit. Admission is never refused: if
// eviction cannot free enough, the insert proceeds anyway, so one entry
// may legitimately exceed capacity on its own.
func (c *Cache) register(path string, size uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var available uint64
	if c.capacity > c.index.total {
		available = c.capacity - c.index.total
	}

	if available < size {
		missing := size - available
		freed, count, err := c.index.evictOldest(path, missing, os.RemoveAll)
		if err != nil {
			return fmt.Errorf("evicting for %s: %w", path, err)
		}
		if count > 0 {
			logging.Get("cache").Info("evicted entries",
				"count", count,
				"freed", humanize.IBytes(freed),
				"for", filepath.Base(path))
		}
	}

	c.index.add(path, size)
	return nil
}

func closeAll(files []NamedFile) {
	for _, f := range files {
		_ = f.File.Close()
	}
}
