package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populate builds an entry directory with files at an explicit
// modification time.
func populate(t *testing.T, root, key string, mtime time.Time, files map[string][]byte) {
	t.Helper()

	dir := filepath.Join(root, key)
	require.NoError(t, os.Mkdir(dir, 0o755))
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o644))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func TestRecoverFromPopulatedRoot(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	populate(t, root, "entry0", base.Add(1*time.Second), map[string][]byte{
		"f0": []byte("hello world"),
		"f1": []byte("hello world"),
	})
	populate(t, root, "entry1", base.Add(2*time.Second), map[string][]byte{
		"f2": []byte("hello world"),
	})
	populate(t, root, "entry2", base.Add(3*time.Second), map[string][]byte{
		"f3": []byte("hello world"),
	})

	c := openCache(t, root, 50)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(44), c.Size())

	requireOccupied(t, c, "entry0", map[string][]byte{
		"f0": []byte("hello world"),
		"f1": []byte("hello world"),
	})
	requireOccupied(t, c, "entry1", map[string][]byte{"f2": []byte("hello world")})
	requireOccupied(t, c, "entry2", map[string][]byte{"f3": []byte("hello world")})
}

func TestRecoverEvictsOldestModificationTimeFirst(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	populate(t, root, "entry0", base.Add(1*time.Second), map[string][]byte{
		"f0": []byte("hello world"),
		"f1": []byte("hello world"),
	})
	populate(t, root, "entry1", base.Add(2*time.Second), map[string][]byte{
		"f2": []byte("hello world"),
	})
	populate(t, root, "entry2", base.Add(3*time.Second), map[string][]byte{
		"f3": []byte("hello world"),
	})

	c := openCache(t, root, 50)
	require.Equal(t, 3, c.Len())

	// 44 bytes occupied out of 50; 13 more need 7, evicting entry0 (22B).
	insert(t, c, "entry3", "f4", []byte("goodbye world"))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(35), c.Size())

	requireVacant(t, c, "entry0")
	requireOccupied(t, c, "entry1", map[string][]byte{"f2": []byte("hello world")})
	requireOccupied(t, c, "entry2", map[string][]byte{"f3": []byte("hello world")})
	requireOccupied(t, c, "entry3", map[string][]byte{"f4": []byte("goodbye world")})
}

func TestRecencySurvivesReopen(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	first, err := Open(context.Background(), root, 100)
	require.NoError(t, err)
	insert(t, first, "a", "f", []byte("1234"))
	insert(t, first, "b", "f", []byte("1234"))
	insert(t, first, "c", "f", []byte("1234"))
	require.NoError(t, first.Close())

	// Pin distinct modification times so the reopened cache has an
	// unambiguous recovery order: a oldest, c newest.
	for i, key := range []string{"a", "b", "c"} {
		mtime := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, os.Chtimes(filepath.Join(root, key, "f"), mtime, mtime))
	}

	c := openCache(t, root, 12)
	require.Equal(t, 3, c.Len())

	// Force eviction of exactly one entry; the oldest must go first.
	insert(t, c, "d", "f", []byte("1234"))
	requireVacant(t, c, "a")
	requireOccupied(t, c, "b", map[string][]byte{"f": []byte("1234")})

	insert(t, c, "e", "f", []byte("1234"))
	requireVacant(t, c, "b")
	requireOccupied(t, c, "c", map[string][]byte{"f": []byte("1234")})
}

func TestRecoverStructureErrorTooDeep(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "key", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "key", "nested", "f"), []byte("x"), 0o644))

	_, err := Open(context.Background(), root, 100)
	assert.ErrorIs(t, err, ErrStructure)
}

func TestRecoverStructureErrorTopLevelFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray"), []byte("x"), 0o644))

	_, err := Open(context.Background(), root, 100)
	assert.ErrorIs(t, err, ErrStructure)
}

func TestRecoverReleasesLockOnFailure(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray"), []byte("x"), 0o644))

	_, err := Open(context.Background(), root, 100)
	require.ErrorIs(t, err, ErrStructure)

	// A failed Open must not leave the root locked.
	require.NoError(t, os.Remove(filepath.Join(root, "stray")))
	c, err := Open(context.Background(), root, 100)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestRecoverSkipsLockFile(t *testing.T) {
	root := t.TempDir()
	populate(t, root, "entry0", time.Now().Add(-time.Minute), map[string][]byte{
		"f": []byte("data"),
	})

	// The lock file created by Open itself must not count as an entry.
	c := openCache(t, root, 100)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(4), c.Size())
}

func TestRecoverSweepsStaleStaging(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, stagingDirName, "deadbeef")
	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "f"), []byte("junk"), 0o644))

	c := openCache(t, root, 100)

	// Uncommitted staged files neither count nor survive.
	assert.Equal(t, 0, c.Len())
	_, err := os.Stat(staging)
	assert.True(t, os.IsNotExist(err))
}

func TestRecoverCancelled(t *testing.T) {
	root := t.TempDir()
	populate(t, root, "entry0", time.Now(), map[string][]byte{"f": []byte("x")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, root, 100)
	assert.ErrorIs(t, err, context.Canceled)
}
