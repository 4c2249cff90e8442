package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// stubController implements archivedriver.Controller, reporting only
// a fixed mount point; every other method is unreachable from these
// tests.
type stubController struct {
	mp *vfspath.MountPoint
}

func (s stubController) MountPoint() *vfspath.MountPoint { return s.mp }
func (s stubController) Stat(context.Context, archivedriver.AccessOptions, string) (*vfsmodel.Entry, error) {
	panic("unused")
}
func (s stubController) CheckAccess(context.Context, archivedriver.AccessOptions, string, ...vfsmodel.AccessType) error {
	panic("unused")
}
func (s stubController) SetReadOnly(context.Context, string) error { panic("unused") }
func (s stubController) SetTime(context.Context, archivedriver.AccessOptions, string, map[vfsmodel.AccessKind]int64) error {
	panic("unused")
}
func (s stubController) Input(context.Context, archivedriver.AccessOptions, string) (iosocket.InputSocket, error) {
	panic("unused")
}
func (s stubController) Output(context.Context, archivedriver.AccessOptions, string, *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	panic("unused")
}
func (s stubController) Mknod(context.Context, archivedriver.AccessOptions, string, vfsmodel.EntryType, *vfsmodel.Entry) error {
	panic("unused")
}
func (s stubController) Unlink(context.Context, archivedriver.AccessOptions, string) error {
	panic("unused")
}
func (s stubController) Sync(context.Context, vfsmodel.SyncOptions) error { panic("unused") }

var _ archivedriver.Controller = stubController{}

type stubSource struct {
	controllers []archivedriver.Controller
}

func (s stubSource) Controllers() []archivedriver.Controller { return s.controllers }

type stubTouch struct{ n int }

func (s stubTouch) Len() int { return s.n }

func hostMP(t *testing.T, opaque string) *vfspath.MountPoint {
	t.Helper()
	mp, err := vfspath.NewHostMountPoint("file", opaque)
	require.NoError(t, err)
	return mp
}

func nestedMP(t *testing.T, parent *vfspath.MountPoint, scheme vfspath.Scheme, entry string) *vfspath.MountPoint {
	t.Helper()
	name, err := vfspath.NewEntryName(entry, false)
	require.NoError(t, err)
	mp, err := vfspath.NewNestedMountPoint(parent, scheme, name)
	require.NoError(t, err)
	return mp
}

func TestRefreshComputesTopLevelArchivesAndTotals(t *testing.T) {
	host := hostMP(t, "/tmp/work")
	top := nestedMP(t, host, "zip", "a.zip")
	nested := nestedMP(t, top, "tar", "b.tar")

	source := stubSource{controllers: []archivedriver.Controller{
		stubController{mp: host},
		stubController{mp: top},
		stubController{mp: nested},
	}}
	reg := New(source, stubTouch{n: 2})

	infos, topLevel := reg.refresh()
	assert.Len(t, infos, 3)
	assert.Equal(t, 1, topLevel)
}

func TestHandlerServesDebugManagerJSON(t *testing.T) {
	host := hostMP(t, "/tmp/work")
	top := nestedMP(t, host, "zip", "a.zip")

	source := stubSource{controllers: []archivedriver.Controller{
		stubController{mp: host},
		stubController{mp: top},
	}}
	reg := New(source, stubTouch{n: 0})

	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/manager")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body debugManagerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.FileSystemsTotal)
	assert.Equal(t, 1, body.TopLevelArchives)
}

func TestHandlerServesMetrics(t *testing.T) {
	source := stubSource{controllers: nil}
	reg := New(source, stubTouch{n: 0})
	reg.SetMaximumFileSystemsMounted(5)
	reg.AddBytesRead("zip:a.zip!/", 128)
	reg.AddBytesWritten("zip:a.zip!/", 64)

	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
