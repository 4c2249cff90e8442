package vfscache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirtyIndexRecordAndLookupRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.db")
	idx, err := OpenDirtyIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Record("file:///data/a.zip", []string{"b.txt", "c.txt"}))

	names, err := idx.Lookup("file:///data/a.zip")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b.txt", "c.txt"}, names)
}

func TestDirtyIndexRecordEmptyClearsEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.db")
	idx, err := OpenDirtyIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Record("file:///data/a.zip", []string{"b.txt"}))
	require.NoError(t, idx.Record("file:///data/a.zip", nil))

	names, err := idx.Lookup("file:///data/a.zip")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDirtyIndexLookupUnknownMountPointIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.db")
	idx, err := OpenDirtyIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	names, err := idx.Lookup("file:///nowhere")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpenDirtyIndexReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.db")
	idx, err := OpenDirtyIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Record("file:///data/a.zip", []string{"b.txt"}))
	require.NoError(t, idx.Close())

	reopened, err := OpenDirtyIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	names, err := reopened.Lookup("file:///data/a.zip")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, names)
}
