package truevfs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truevfs/truevfs/config"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	cfg := config.Default()
	cfg.PacemakerSweep = time.Hour // avoid a real firing during the test
	k, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Shutdown(context.Background()) })
	return k
}

func TestNewWiresHostMountPoint(t *testing.T) {
	k := newTestKernel(t)

	host, err := vfspath.NewHostMountPoint("file", t.TempDir())
	require.NoError(t, err)

	c, err := k.Manager().Controller(host)
	require.NoError(t, err)
	assert.Equal(t, host.String(), c.MountPoint().String())
	assert.Equal(t, 1, k.Manager().Size())
}

func TestFactoryRejectsDisabledScheme(t *testing.T) {
	cfg := config.Default()
	cfg.PacemakerSweep = time.Hour
	cfg.Schemes = []vfspath.Scheme{"tar"}
	k, err := New(cfg)
	require.NoError(t, err)
	defer k.Shutdown(context.Background())

	host, err := vfspath.NewHostMountPoint("file", t.TempDir())
	require.NoError(t, err)
	entry, err := vfspath.NewEntryName("a.zip", false)
	require.NoError(t, err)
	nested, err := vfspath.NewNestedMountPoint(host, "zip", entry)
	require.NoError(t, err)

	_, err = k.Manager().Controller(nested)
	require.Error(t, err)
	assert.True(t, vfsmodel.Of(err, vfsmodel.InvalidURI))
}

func TestFactoryRejectsUnknownScheme(t *testing.T) {
	k := newTestKernel(t)

	host, err := vfspath.NewHostMountPoint("file", t.TempDir())
	require.NoError(t, err)
	entry, err := vfspath.NewEntryName("a.nope", false)
	require.NoError(t, err)
	nested, err := vfspath.NewNestedMountPoint(host, "nope", entry)
	require.NoError(t, err)

	_, err = k.Manager().Controller(nested)
	require.Error(t, err)
	assert.True(t, vfsmodel.Of(err, vfsmodel.InvalidURI))
}

func TestDirtyIndexPathOpensAndClosesIndex(t *testing.T) {
	cfg := config.Default()
	cfg.PacemakerSweep = time.Hour
	cfg.DirtyIndexPath = filepath.Join(t.TempDir(), "dirty.db")

	k, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, k.index)

	require.NoError(t, k.Shutdown(context.Background()))
	assert.FileExists(t, cfg.DirtyIndexPath)
}

func TestShutdownStopsPacemakerAndSyncs(t *testing.T) {
	k := newTestKernel(t)

	host, err := vfspath.NewHostMountPoint("file", t.TempDir())
	require.NoError(t, err)
	_, err = k.Manager().Controller(host)
	require.NoError(t, err)

	assert.NoError(t, k.Shutdown(context.Background()))
	assert.Equal(t, 0, k.Manager().Size())
}
