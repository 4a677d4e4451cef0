package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/hoard/pkg/hoard/walker"
)

// recoveredEntry is one entry directory reconstructed from disk.
type recoveredEntry struct {
	path  string
	size  uint64
	mtime time.Time
}

// scanRoot walks the canonicalized root and regroups every file found into
// per-entry totals. Recency is taken from the newest file modification
// time in each entry, so the order survives restarts without a separate
// metadata file. The returned slice is sorted oldest-first, ready to seed
// the index.
//
// The lock file and anything under a dotted top-level name (the staging
// area) belong to the cache itself and are skipped. Every other file must
// sit at exactly <key>/<name> depth; anything else means the directory is
// foreign or corrupt and the scan aborts with ErrStructure.
func scanRoot(ctx context.Context, w walker.Walker, root string) ([]recoveredEntry, error) {
	type group struct {
		size  uint64
		mtime time.Time
	}

	var mu sync.Mutex
	groups := make(map[string]*group)

	err := w.Walk(ctx, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("resolving %s: %w", path, relErr)
		}

		parts := strings.Split(rel, string(filepath.Separator))
		if strings.HasPrefix(parts[0], ".") {
			return nil
		}
		if len(parts) != 2 {
			return fmt.Errorf("%w: %s", ErrStructure, path)
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return fmt.Errorf("reading metadata for %s: %w", path, infoErr)
		}

		key := filepath.Join(root, parts[0])

		mu.Lock()
		defer mu.Unlock()
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.size += uint64(info.Size())
		if info.ModTime().After(g.mtime) {
			g.mtime = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]recoveredEntry, 0, len(groups))
	for path, g := range groups {
		entries = append(entries, recoveredEntry{path: path, size: g.size, mtime: g.mtime})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mtime.Equal(entries[j].mtime) {
			return entries[i].path < entries[j].path
		}
		return entries[i].mtime.Before(entries[j].mtime)
	})

	return entries, nil
}

// sweepStaging removes staged transaction directories left behind by a
// crashed process. Their contents were never committed, so deleting them
// is always safe.
func sweepStaging(root string) (int, error) {
	staging := filepath.Join(root, stagingDirName)

	dirs, err := os.ReadDir(staging)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading staging directory %s: %w", staging, err)
	}

	removed := 0
	for _, d := range dirs {
		if err := os.RemoveAll(filepath.Join(staging, d.Name())); err != nil {
			return removed, fmt.Errorf("removing stale staging directory %s: %w", d.Name(), err)
		}
		removed++
	}
	return removed, nil
}
