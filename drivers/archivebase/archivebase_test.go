package archivebase

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// fakeInputService is a trivial in-memory "archive format": a map from
// entry name to that entry's raw bytes, so entries can be listed and
// read back without any real encoding.

type fakeInputService struct {
	entries map[string][]byte
}

func (s *fakeInputService) Entries(ctx context.Context) ([]*vfsmodel.Entry, error) {
	out := make([]*vfsmodel.Entry, 0, len(s.entries))
	for name, data := range s.entries {
		e := vfsmodel.NewEntry(name, vfsmodel.File)
		e.Sizes[vfsmodel.SizeData] = int64(len(data))
		out = append(out, e)
	}
	return out, nil
}
func (s *fakeInputService) Entry(ctx context.Context, name string) (*vfsmodel.Entry, error) {
	if data, ok := s.entries[name]; ok {
		e := vfsmodel.NewEntry(name, vfsmodel.File)
		e.Sizes[vfsmodel.SizeData] = int64(len(data))
		return e, nil
	}
	return nil, nil
}
func (s *fakeInputService) NewInputSocket(name string) (iosocket.InputSocket, error) {
	data := s.entries[name]
	return iosocket.NewFuncInputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return nil, nil },
		func(ctx context.Context) (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	), nil
}
func (s *fakeInputService) Close() error { return nil }

type fakeOutputService struct {
	committed map[string][]byte
}

func (s *fakeOutputService) NewOutputSocket(entry *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	return iosocket.NewFuncOutputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return entry, nil },
		func(ctx context.Context) (io.WriteCloser, error) {
			return &fakeWriter{s: s, name: entry.Name}, nil
		},
	), nil
}
func (s *fakeOutputService) Close() error { return nil }

type fakeWriter struct {
	s    *fakeOutputService
	name string
	buf  []byte
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
func (w *fakeWriter) Close() error {
	w.s.committed[w.name] = w.buf
	return nil
}

type fakeDriver struct {
	writable  bool
	in        *fakeInputService
	committed map[string][]byte
}

func (d *fakeDriver) Charset() archivedriver.Charset { return "UTF-8" }
func (d *fakeDriver) Encodable(name string) bool      { return true }
func (d *fakeDriver) Writable() bool                  { return d.writable }
func (d *fakeDriver) NewEntry(name string, typ vfsmodel.EntryType, opts archivedriver.AccessOptions, template *vfsmodel.Entry) *vfsmodel.Entry {
	if template != nil {
		return template
	}
	return vfsmodel.NewEntry(name, typ)
}
func (d *fakeDriver) NewInputService(ctx context.Context, mp *vfspath.MountPoint, source iosocket.InputSocket) (archivedriver.InputService, error) {
	return d.in, nil
}
func (d *fakeDriver) NewOutputService(ctx context.Context, mp *vfspath.MountPoint, sink iosocket.OutputSocket, input archivedriver.InputService) (archivedriver.OutputService, error) {
	d.committed = make(map[string][]byte)
	return &fakeOutputService{committed: d.committed}, nil
}
func (d *fakeDriver) NewController(mp *vfspath.MountPoint, parent archivedriver.Controller) archivedriver.Controller {
	return New(mp, d, parent)
}

// fakeParent stands in for the host (or outer) controller the archive
// bytes themselves live in.
type fakeParent struct {
	archiveBytes []byte
	written      []byte
}

func (p *fakeParent) MountPoint() *vfspath.MountPoint { return nil }
func (p *fakeParent) Stat(ctx context.Context, opts archivedriver.AccessOptions, name string) (*vfsmodel.Entry, error) {
	return vfsmodel.NewEntry(name, vfsmodel.File), nil
}
func (p *fakeParent) CheckAccess(ctx context.Context, opts archivedriver.AccessOptions, name string, types ...vfsmodel.AccessType) error {
	return nil
}
func (p *fakeParent) SetReadOnly(ctx context.Context, name string) error { return nil }
func (p *fakeParent) SetTime(ctx context.Context, opts archivedriver.AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error {
	return nil
}
func (p *fakeParent) Input(ctx context.Context, opts archivedriver.AccessOptions, name string) (iosocket.InputSocket, error) {
	return iosocket.NewFuncInputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return nil, nil },
		func(ctx context.Context) (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(p.archiveBytes)), nil },
	), nil
}
func (p *fakeParent) Output(ctx context.Context, opts archivedriver.AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	return iosocket.NewFuncOutputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return template, nil },
		func(ctx context.Context) (io.WriteCloser, error) { return &parentWriter{p: p}, nil },
	), nil
}
func (p *fakeParent) Mknod(ctx context.Context, opts archivedriver.AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error {
	return nil
}
func (p *fakeParent) Unlink(ctx context.Context, opts archivedriver.AccessOptions, name string) error {
	return nil
}
func (p *fakeParent) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error { return nil }

type parentWriter struct {
	p   *fakeParent
	buf []byte
}

func (w *parentWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
func (w *parentWriter) Close() error {
	w.p.written = w.buf
	return nil
}

func testMP(t *testing.T) *vfspath.MountPoint {
	t.Helper()
	host, err := vfspath.NewHostMountPoint(vfspath.SchemeFile, "/data")
	require.NoError(t, err)
	en, err := vfspath.NewEntryName("a.zip", false)
	require.NoError(t, err)
	mp, err := vfspath.NewNestedMountPoint(host, "zip", en)
	require.NoError(t, err)
	return mp
}

func TestStatReadsExistingEntry(t *testing.T) {
	driver := &fakeDriver{writable: true, in: &fakeInputService{entries: map[string][]byte{"x": []byte("hello")}}}
	c := New(testMP(t), driver, &fakeParent{})

	e, err := c.Stat(context.Background(), 0, "x")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int64(5), e.Size(vfsmodel.SizeData))
}

func TestOutputStagesUntilSync(t *testing.T) {
	driver := &fakeDriver{writable: true, in: &fakeInputService{entries: map[string][]byte{}}}
	c := New(testMP(t), driver, &fakeParent{})

	ctx := context.Background()
	out, err := c.Output(ctx, 0, "y", vfsmodel.NewEntry("y", vfsmodel.File))
	require.NoError(t, err)
	w, err := out.OpenStream(ctx)
	require.NoError(t, err)
	_, err = w.Write([]byte("new-data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Nil(t, driver.committed, "sync has not run yet")

	require.NoError(t, c.Sync(ctx, 0))
	require.NotNil(t, driver.committed)
	assert.Equal(t, "new-data", string(driver.committed["y"]))
}

func TestUnlinkThenStatReturnsNil(t *testing.T) {
	driver := &fakeDriver{writable: true, in: &fakeInputService{entries: map[string][]byte{"x": []byte("hello")}}}
	c := New(testMP(t), driver, &fakeParent{})
	ctx := context.Background()

	require.NoError(t, c.Unlink(ctx, 0, "x"))
	e, err := c.Stat(ctx, 0, "x")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestReadOnlyDriverRejectsOutput(t *testing.T) {
	driver := &fakeDriver{writable: false, in: &fakeInputService{entries: map[string][]byte{}}}
	c := New(testMP(t), driver, &fakeParent{})

	_, err := c.Output(context.Background(), 0, "y", nil)
	assert.True(t, vfsmodel.Of(err, vfsmodel.ReadOnly))
}
