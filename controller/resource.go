package controller

import (
	"context"
	"io"
	"time"

	"github.com/truevfs/truevfs/accountant"
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/syncutil"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// DefaultSyncWaitTimeout bounds how long sync's wait-idle step (§4.7
// step 1) waits for foreign-owner resources to close before giving up.
const DefaultSyncWaitTimeout = 5 * time.Second

// ByteCounter receives real I/O byte counts as they're read or written
// through an accounted stream, the §6 per-mount-point BytesRead/
// BytesWritten attributes. *metrics.Registry implements this; declared
// here rather than imported so this package stays a leaf dependency of
// metrics, not the reverse.
type ByteCounter interface {
	AddBytesRead(mountPoint string, n int)
	AddBytesWritten(mountPoint string, n int)
}

// ResourceController is decorator layer 2 of §4.3: it registers every
// stream/channel the inner layer returns with the accountant, tallies
// the bytes each stream actually moves against counter (if set), and
// implements sync steps 1–2 (wait-idle, close-all) before delegating
// the remaining steps (cache flush, archive commit, tear-down) to the
// inner layer.
type ResourceController struct {
	mp          *vfspath.MountPoint
	inner       archivedriver.Controller
	accountant  *accountant.Accountant
	counter     ByteCounter
	waitTimeout time.Duration
}

// NewResourceController wraps inner with accounting for mp, backed by
// acc. counter may be nil, disabling byte tallying.
func NewResourceController(mp *vfspath.MountPoint, inner archivedriver.Controller, acc *accountant.Accountant, counter ByteCounter) *ResourceController {
	return &ResourceController{mp: mp, inner: inner, accountant: acc, counter: counter, waitTimeout: DefaultSyncWaitTimeout}
}

func (c *ResourceController) MountPoint() *vfspath.MountPoint { return c.mp }

func (c *ResourceController) Stat(ctx context.Context, opts archivedriver.AccessOptions, name string) (*vfsmodel.Entry, error) {
	return c.inner.Stat(ctx, opts, name)
}

func (c *ResourceController) CheckAccess(ctx context.Context, opts archivedriver.AccessOptions, name string, types ...vfsmodel.AccessType) error {
	return c.inner.CheckAccess(ctx, opts, name, types...)
}

func (c *ResourceController) SetReadOnly(ctx context.Context, name string) error {
	return c.inner.SetReadOnly(ctx, name)
}

func (c *ResourceController) SetTime(ctx context.Context, opts archivedriver.AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error {
	return c.inner.SetTime(ctx, opts, name, times)
}

// accountedReadCloser registers the handle on creation and unregisters
// it when the caller closes the stream — the resource-accounting
// contract of §5: "registered on creation (on the owning thread) and
// unregistered on close".
type accountedReadCloser struct {
	io.ReadCloser
	handle *accountant.Handle
}

func (a *accountedReadCloser) Close() error { return a.handle.Close() }

type accountedWriteCloser struct {
	io.WriteCloser
	handle *accountant.Handle
}

func (a *accountedWriteCloser) Close() error { return a.handle.Close() }

// accountingInputSocket registers every stream it opens with the
// accountant, promoting the embedded InputSocket's LocalTarget/
// PeerTarget/Bind/peer/setPeer methods unchanged.
type accountingInputSocket struct {
	iosocket.InputSocket
	acc     *accountant.Accountant
	mp      string
	counter ByteCounter
}

func (s *accountingInputSocket) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	r, err := s.InputSocket.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	var counted io.ReadCloser = r
	if s.counter != nil {
		counted = iosocket.NewCountingReader(r, func(n int) { s.counter.AddBytesRead(s.mp, n) })
	}
	return &accountedReadCloser{ReadCloser: counted, handle: s.acc.Register(ctx, counted)}, nil
}

type accountingOutputSocket struct {
	iosocket.OutputSocket
	acc     *accountant.Accountant
	mp      string
	counter ByteCounter
}

func (s *accountingOutputSocket) OpenStream(ctx context.Context) (io.WriteCloser, error) {
	w, err := s.OutputSocket.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	var counted io.WriteCloser = w
	if s.counter != nil {
		counted = iosocket.NewCountingWriter(w, func(n int) { s.counter.AddBytesWritten(s.mp, n) })
	}
	return &accountedWriteCloser{WriteCloser: counted, handle: s.acc.Register(ctx, counted)}, nil
}

func (c *ResourceController) Input(ctx context.Context, opts archivedriver.AccessOptions, name string) (iosocket.InputSocket, error) {
	inner, err := c.inner.Input(ctx, opts, name)
	if err != nil {
		return nil, err
	}
	return &accountingInputSocket{InputSocket: inner, acc: c.accountant, mp: c.mp.String(), counter: c.counter}, nil
}

func (c *ResourceController) Output(ctx context.Context, opts archivedriver.AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	inner, err := c.inner.Output(ctx, opts, name, template)
	if err != nil {
		return nil, err
	}
	return &accountingOutputSocket{OutputSocket: inner, acc: c.accountant, mp: c.mp.String(), counter: c.counter}, nil
}

func (c *ResourceController) Mknod(ctx context.Context, opts archivedriver.AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error {
	return c.inner.Mknod(ctx, opts, name, typ, template)
}

func (c *ResourceController) Unlink(ctx context.Context, opts archivedriver.AccessOptions, name string) error {
	return c.inner.Unlink(ctx, opts, name)
}

// Sync implements §4.7 steps 1–2: wait-idle, then (if forcing) close
// every still-open accounted resource, before delegating steps 3–5
// (flush, commit, tear-down) to the inner layer.
func (c *ResourceController) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error {
	local := c.accountant.LocalCount(ctx)
	forcing := opts.ForcesClose()

	// Per the Open Question decision in DESIGN.md: same-owner local
	// resources always require force-close, never a wait, and any
	// forced local close is surfaced as a warning rather than a fatal
	// CurrentThreadBusy.
	if local > 0 && !forcing {
		return vfsmodel.NewKindError(vfsmodel.CurrentThreadBusy, "sync: %d resource(s) open on the calling owner for %s", local, c.mp)
	}

	remaining := c.accountant.TotalCount()
	if remaining > 0 && !forcing {
		remaining = c.accountant.WaitIdle(c.waitTimeout)
		if remaining > 0 {
			return vfsmodel.NewKindError(vfsmodel.ThreadsBusy, "sync: %d resource(s) still open on %s after waiting", remaining, c.mp)
		}
	}

	var b syncutil.Builder
	if forcing {
		for _, cerr := range c.accountant.CloseAll(c.mp) {
			b.Warnf(cerr, "sync: force-close resource on %s", c.mp)
		}
	}

	if err := c.inner.Sync(ctx, opts); err != nil {
		if vfsmodel.Of(err, vfsmodel.SyncFatal) {
			b.Fail(err)
		} else {
			b.Warn(err)
		}
	}

	return b.Check()
}

var _ archivedriver.Controller = (*ResourceController)(nil)
