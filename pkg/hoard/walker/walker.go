// Package walker provides recursive directory enumeration.
//
// The cache consumes a Walker once at startup to rebuild its in-memory
// state from whatever is already on disk. The default implementation uses
// fastwalk for parallel traversal; tests substitute their own.
package walker

import (
	"context"
	"io/fs"

	"github.com/charlievieth/fastwalk"
)

// Walker enumerates every filesystem object under root, invoking fn for
// each descendant. Implementations may invoke fn from multiple goroutines
// concurrently; fn must be safe for concurrent use.
type Walker interface {
	Walk(ctx context.Context, root string, fn fs.WalkDirFunc) error
}

// Fast walks directory trees in parallel using fastwalk.
// Symlinks are not followed.
type Fast struct {
	numWorkers int
}

// Option configures a Fast walker.
type Option func(*Fast)

// WithWorkers overrides the number of walk workers. Zero uses the
// fastwalk default.
func WithWorkers(n int) Option {
	return func(w *Fast) {
		w.numWorkers = n
	}
}

// NewFast creates a parallel walker.
func NewFast(opts ...Option) *Fast {
	w := &Fast{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk enumerates root recursively. Cancelling ctx aborts the walk and
// returns the context's error.
func (w *Fast) Walk(ctx context.Context, root string, fn fs.WalkDirFunc) error {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.numWorkers,
	}

	return fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return fn(path, d, err)
	})
}
