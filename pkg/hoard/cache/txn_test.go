package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(t *testing.T, c *Cache, key string) *Txn {
	t.Helper()

	entry, err := c.Entry(key)
	require.NoError(t, err)
	vacant, ok := entry.(*Vacant)
	require.True(t, ok, "entry %q should be vacant", key)

	txn, err := vacant.Stage()
	require.NoError(t, err)
	return txn
}

func addFile(t *testing.T, txn *Txn, name string, content []byte) {
	t.Helper()

	require.NoError(t, txn.Add(name, func(f *os.File) error {
		_, err := f.Write(content)
		return err
	}))
}

func TestTxnCommitPublishesAllFiles(t *testing.T) {
	c := openCache(t, t.TempDir(), 100)

	txn := stage(t, c, "group")
	addFile(t, txn, "f0", []byte("hello earth"))
	addFile(t, txn, "f1", []byte("hello mars"))

	// Nothing visible or accounted before commit.
	requireVacant(t, c, "group")
	require.Equal(t, uint64(0), c.Size())

	require.NoError(t, txn.Commit())

	requireOccupied(t, c, "group", map[string][]byte{
		"f0": []byte("hello earth"),
		"f1": []byte("hello mars"),
	})
	assert.Equal(t, uint64(21), c.Size())
	assert.Equal(t, 1, c.Len())
}

func TestTxnCommitEvicts(t *testing.T) {
	c := openCache(t, t.TempDir(), 10)

	insert(t, c, "old", "f", []byte("1234567890"))

	txn := stage(t, c, "fresh")
	addFile(t, txn, "f", []byte("abcdef"))
	require.NoError(t, txn.Commit())

	requireVacant(t, c, "old")
	requireOccupied(t, c, "fresh", map[string][]byte{"f": []byte("abcdef")})
	assert.Equal(t, uint64(6), c.Size())
}

func TestTxnDiscard(t *testing.T) {
	root := t.TempDir()
	c := openCache(t, root, 100)

	txn := stage(t, c, "group")
	addFile(t, txn, "f0", []byte("never seen"))
	require.NoError(t, txn.Discard())

	requireVacant(t, c, "group")
	assert.Equal(t, uint64(0), c.Size())

	// The staging area holds no leftovers.
	dirs, err := os.ReadDir(filepath.Join(root, stagingDirName))
	if err == nil {
		assert.Empty(t, dirs)
	}
}

func TestTxnFinishedRejectsFurtherUse(t *testing.T) {
	c := openCache(t, t.TempDir(), 100)

	txn := stage(t, c, "group")
	addFile(t, txn, "f0", []byte("x"))
	require.NoError(t, txn.Commit())

	assert.ErrorIs(t, txn.Add("f1", func(*os.File) error { return nil }), ErrTxnFinished)
	assert.ErrorIs(t, txn.Commit(), ErrTxnFinished)
	assert.NoError(t, txn.Discard())
}

func TestTxnAddInvalidName(t *testing.T) {
	c := openCache(t, t.TempDir(), 100)

	txn := stage(t, c, "group")
	assert.ErrorIs(t, txn.Add(".hidden", func(*os.File) error { return nil }), ErrInvalidName)
	require.NoError(t, txn.Discard())
}

func TestTxnCommitRaceWithExistingEntry(t *testing.T) {
	c := openCache(t, t.TempDir(), 100)

	txn := stage(t, c, "group")
	addFile(t, txn, "f0", []byte("staged"))

	// The entry appears through the plain path while the txn is open.
	insert(t, c, "group", "f1", []byte("direct"))

	// Publishing onto a now-existing entry fails; the direct insert wins
	// and the staged files remain discardable.
	require.Error(t, txn.Commit())
	require.NoError(t, txn.Discard())
	requireOccupied(t, c, "group", map[string][]byte{"f1": []byte("direct")})
}
