package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// stubController records its own mount point and parent, and counts
// Sync calls in the order they happened across the whole test via a
// shared *[]string log.
type stubController struct {
	mp      *vfspath.MountPoint
	parent  archivedriver.Controller
	log     *[]string
	failOn  bool
	fatalOn bool
}

func (s *stubController) MountPoint() *vfspath.MountPoint { return s.mp }
func (s *stubController) Stat(ctx context.Context, opts archivedriver.AccessOptions, name string) (*vfsmodel.Entry, error) {
	return nil, nil
}
func (s *stubController) CheckAccess(ctx context.Context, opts archivedriver.AccessOptions, name string, types ...vfsmodel.AccessType) error {
	return nil
}
func (s *stubController) SetReadOnly(ctx context.Context, name string) error { return nil }
func (s *stubController) SetTime(ctx context.Context, opts archivedriver.AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error {
	return nil
}
func (s *stubController) Input(ctx context.Context, opts archivedriver.AccessOptions, name string) (iosocket.InputSocket, error) {
	return nil, nil
}
func (s *stubController) Output(ctx context.Context, opts archivedriver.AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	return nil, nil
}
func (s *stubController) Mknod(ctx context.Context, opts archivedriver.AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error {
	return nil
}
func (s *stubController) Unlink(ctx context.Context, opts archivedriver.AccessOptions, name string) error {
	return nil
}
func (s *stubController) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error {
	*s.log = append(*s.log, s.mp.String())
	if s.fatalOn {
		return vfsmodel.Wrap(errors.New("commit failed"), vfsmodel.SyncFatal, "stub sync fatal")
	}
	if s.failOn {
		return vfsmodel.Wrap(errors.New("boom"), vfsmodel.SyncWarning, "stub sync failure")
	}
	return nil
}

func hostMP(t *testing.T, path string) *vfspath.MountPoint {
	t.Helper()
	mp, err := vfspath.NewHostMountPoint(vfspath.SchemeFile, path)
	require.NoError(t, err)
	return mp
}

func nestedMP(t *testing.T, parent *vfspath.MountPoint, name string) *vfspath.MountPoint {
	t.Helper()
	en, err := vfspath.NewEntryName(name, false)
	require.NoError(t, err)
	mp, err := vfspath.NewNestedMountPoint(parent, "zip", en)
	require.NoError(t, err)
	return mp
}

func TestControllerBuildsParentChainBottomUp(t *testing.T) {
	var log []string
	host := hostMP(t, "/data")
	archiveEntry := nestedMP(t, host, "a.zip")

	m := New(func(mp *vfspath.MountPoint, parent archivedriver.Controller) (archivedriver.Controller, error) {
		return &stubController{mp: mp, parent: parent, log: &log}, nil
	})

	c, err := m.Controller(archiveEntry)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Size(), "both the host and the nested archive should be interned")

	sc := c.(*stubController)
	require.NotNil(t, sc.parent)
	assert.Equal(t, host.String(), sc.parent.MountPoint().String())
}

func TestControllerInternsByMountPoint(t *testing.T) {
	var log []string
	calls := 0
	m := New(func(mp *vfspath.MountPoint, parent archivedriver.Controller) (archivedriver.Controller, error) {
		calls++
		return &stubController{mp: mp, parent: parent, log: &log}, nil
	})

	host := hostMP(t, "/data")
	c1, err := m.Controller(host)
	require.NoError(t, err)
	c2, err := m.Controller(host)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, calls)
}

func TestSyncRunsDeepestFirst(t *testing.T) {
	var log []string
	host := hostMP(t, "/data")
	outer := nestedMP(t, host, "a.zip")
	inner := nestedMP(t, outer, "b.zip")

	m := New(func(mp *vfspath.MountPoint, parent archivedriver.Controller) (archivedriver.Controller, error) {
		return &stubController{mp: mp, parent: parent, log: &log}, nil
	})

	_, err := m.Controller(inner)
	require.NoError(t, err)

	require.NoError(t, m.Sync(context.Background(), 0))
	require.Len(t, log, 3)
	assert.Equal(t, inner.String(), log[0])
	assert.Equal(t, outer.String(), log[1])
	assert.Equal(t, host.String(), log[2])
}

func TestSyncAggregatesWarningsAcrossControllers(t *testing.T) {
	var log []string
	host := hostMP(t, "/data")
	archiveEntry := nestedMP(t, host, "a.zip")

	m := New(func(mp *vfspath.MountPoint, parent archivedriver.Controller) (archivedriver.Controller, error) {
		return &stubController{mp: mp, parent: parent, log: &log, failOn: true}, nil
	})

	_, err := m.Controller(archiveEntry)
	require.NoError(t, err)

	err = m.Sync(context.Background(), 0)
	assert.Error(t, err)
	assert.True(t, vfsmodel.Of(err, vfsmodel.SyncWarning))
}

func TestSyncEscalatesFatalControllerErrorToSyncFatal(t *testing.T) {
	var log []string
	host := hostMP(t, "/data")
	fatalEntry := nestedMP(t, host, "a.zip")
	warnEntry := nestedMP(t, host, "b.zip")

	m := New(func(mp *vfspath.MountPoint, parent archivedriver.Controller) (archivedriver.Controller, error) {
		sc := &stubController{mp: mp, parent: parent, log: &log}
		if mp.String() == fatalEntry.String() {
			sc.fatalOn = true
		}
		if mp.String() == warnEntry.String() {
			sc.failOn = true
		}
		return sc, nil
	})

	_, err := m.Controller(fatalEntry)
	require.NoError(t, err)
	_, err = m.Controller(warnEntry)
	require.NoError(t, err)

	err = m.Sync(context.Background(), 0)
	assert.Error(t, err)
	assert.True(t, vfsmodel.Of(err, vfsmodel.SyncFatal), "a controller's fatal error must escalate the whole composite to SyncFatal")
}

func TestSyncWithUmountDropsControllersFromTable(t *testing.T) {
	var log []string
	host := hostMP(t, "/data")

	m := New(func(mp *vfspath.MountPoint, parent archivedriver.Controller) (archivedriver.Controller, error) {
		return &stubController{mp: mp, parent: parent, log: &log}, nil
	})

	_, err := m.Controller(host)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Size())

	require.NoError(t, m.Sync(context.Background(), vfsmodel.SyncOptions(vfsmodel.Umount)))
	assert.Equal(t, 0, m.Size())
}
