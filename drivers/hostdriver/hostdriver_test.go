package hostdriver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

func newController(t *testing.T) (*Controller, string) {
	t.Helper()
	dir := t.TempDir()
	mp, err := vfspath.NewHostMountPoint(vfspath.SchemeFile, dir)
	require.NoError(t, err)
	return New(mp), dir
}

func TestStatMissingReturnsNilNil(t *testing.T) {
	c, _ := newController(t)
	e, err := c.Stat(context.Background(), 0, "missing")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestMknodAndStatFile(t *testing.T) {
	c, _ := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Mknod(ctx, 0, "a.txt", vfsmodel.File, nil))

	e, err := c.Stat(ctx, 0, "a.txt")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, vfsmodel.File, e.Type)
}

func TestOutputThenInputRoundTrips(t *testing.T) {
	c, _ := newController(t)
	ctx := context.Background()

	out, err := c.Output(ctx, 0, "b.txt", vfsmodel.NewEntry("b.txt", vfsmodel.File))
	require.NoError(t, err)
	w, err := out.OpenStream(ctx)
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	in, err := c.Input(ctx, 0, "b.txt")
	require.NoError(t, err)
	r, err := in.OpenStream(ctx)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestUnlinkRemovesEntry(t *testing.T) {
	c, dir := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Mknod(ctx, 0, "c.txt", vfsmodel.File, nil))
	require.NoError(t, c.Unlink(ctx, 0, "c.txt"))

	_, err := os.Stat(filepath.Join(dir, "c.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheckAccessDeniedWhenNotWritable(t *testing.T) {
	c, dir := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Mknod(ctx, 0, "ro.txt", vfsmodel.File, nil))
	require.NoError(t, os.Chmod(filepath.Join(dir, "ro.txt"), 0o444))

	err := c.CheckAccess(ctx, 0, "ro.txt", vfsmodel.Writable)
	assert.True(t, vfsmodel.Of(err, vfsmodel.AccessDenied))
}

func TestMknodDirectoryThenStatListsChildren(t *testing.T) {
	c, _ := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Mknod(ctx, 0, "dir", vfsmodel.Directory, nil))
	require.NoError(t, c.Mknod(ctx, 0, "dir/child.txt", vfsmodel.File, nil))

	e, err := c.Stat(ctx, 0, "dir")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Contains(t, e.Children, "child.txt")
}
