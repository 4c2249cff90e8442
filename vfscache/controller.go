package vfscache

import (
	"bytes"
	"context"
	"io"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// DefaultReadTTL bounds how long an unwritten read buffer survives
// without being re-read before it is evicted, freeing pool storage for
// archives that are mostly read once.
const DefaultReadTTL = 5 * time.Minute

// Controller is decorator layer 3 of §4.3's stack: Cache. Reads of an
// entry carrying the CACHE option go through a read-through buffer;
// writes accumulate in a write-back buffer flushed in directory order
// on sync.
type Controller struct {
	mp      *vfspath.MountPoint
	inner   archivedriver.Controller
	pool    Pool
	entries *entries
	reads   *gocache.Cache
	index   *DirtyIndex // optional; nil disables persistence
}

// Options configures a Controller.
type Options struct {
	Pool     Pool
	ReadTTL  time.Duration
	Index    *DirtyIndex
}

// Wrap builds a Controller satisfying controller.CacheDecorator's
// signature, so it can be passed straight to controller.Stack.
func Wrap(opts Options) func(mp *vfspath.MountPoint, target archivedriver.Controller) archivedriver.Controller {
	pool := opts.Pool
	if pool == nil {
		pool = ThresholdPool{Threshold: 1 << 20, Overflow: FilePool{}}
	}
	ttl := opts.ReadTTL
	if ttl <= 0 {
		ttl = DefaultReadTTL
	}
	return func(mp *vfspath.MountPoint, target archivedriver.Controller) archivedriver.Controller {
		c := &Controller{
			mp:      mp,
			inner:   target,
			pool:    pool,
			entries: newEntries(),
			reads:   gocache.New(ttl, ttl/2),
			index:   opts.Index,
		}
		c.reads.OnEvicted(func(name string, _ interface{}) {
			c.entries.invalidateInput(name)
		})
		return c
	}
}

func (c *Controller) MountPoint() *vfspath.MountPoint { return c.mp }

func (c *Controller) Stat(ctx context.Context, opts archivedriver.AccessOptions, name string) (*vfsmodel.Entry, error) {
	return c.inner.Stat(ctx, opts, name)
}

func (c *Controller) CheckAccess(ctx context.Context, opts archivedriver.AccessOptions, name string, types ...vfsmodel.AccessType) error {
	return c.inner.CheckAccess(ctx, opts, name, types...)
}

func (c *Controller) SetReadOnly(ctx context.Context, name string) error {
	return c.inner.SetReadOnly(ctx, name)
}

func (c *Controller) SetTime(ctx context.Context, opts archivedriver.AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error {
	return c.inner.SetTime(ctx, opts, name, times)
}

func (c *Controller) Input(ctx context.Context, opts archivedriver.AccessOptions, name string) (iosocket.InputSocket, error) {
	if !opts.Has(vfsmodel.Cache) {
		return c.inner.Input(ctx, opts, name)
	}
	inner, err := c.inner.Input(ctx, opts, name)
	if err != nil {
		return nil, err
	}
	en := c.entries.get(name)
	c.reads.Set(name, true, gocache.DefaultExpiration)
	return iosocket.NewFuncInputSocket(
		inner.LocalTarget,
		func(ctx context.Context) (io.ReadCloser, error) { return c.readThrough(ctx, en, inner) },
	), nil
}

func (c *Controller) readThrough(ctx context.Context, en *entry, inner iosocket.InputSocket) (io.ReadCloser, error) {
	en.mu.Lock()
	defer en.mu.Unlock()

	if en.output != nil && en.dirty {
		bs, err := en.output.Bytes()
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(bs)), nil
	}
	if en.input != nil {
		bs, err := en.input.Bytes()
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(bs)), nil
	}

	entryMeta, err := inner.LocalTarget(ctx)
	sizeHint := int64(-1)
	if err == nil && entryMeta != nil {
		sizeHint = entryMeta.Size(vfsmodel.SizeData)
	}
	buf, err := c.pool.Alloc(sizeHint)
	if err != nil {
		return nil, err
	}
	r, err := inner.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	en.input = buf

	bs, err := buf.Bytes()
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(bs)), nil
}

func (c *Controller) Output(ctx context.Context, opts archivedriver.AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	if !opts.Has(vfsmodel.Cache) {
		return c.inner.Output(ctx, opts, name, template)
	}
	en := c.entries.get(name)
	c.entries.invalidateInput(name)

	return iosocket.NewFuncOutputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return template, nil },
		func(ctx context.Context) (io.WriteCloser, error) { return c.writeBack(en, template) },
	), nil
}

func (c *Controller) writeBack(en *entry, template *vfsmodel.Entry) (io.WriteCloser, error) {
	en.mu.Lock()
	defer en.mu.Unlock()

	sizeHint := int64(-1)
	if template != nil {
		sizeHint = template.Size(vfsmodel.SizeData)
	}
	buf, err := c.pool.Alloc(sizeHint)
	if err != nil {
		return nil, err
	}
	if err := buf.Truncate(); err != nil {
		return nil, err
	}
	en.output = buf
	en.dirty = true
	return &dirtyWriter{entry: en, Buffer: buf}, nil
}

// dirtyWriter marks the entry dirty on every write; the buffer stays
// dirty across stream close, per §4.6's "remains dirty until sync
// flushes it".
type dirtyWriter struct {
	entry *entry
	Buffer
}

func (w *dirtyWriter) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	if n > 0 {
		w.entry.dirty = true
	}
	return n, err
}

func (w *dirtyWriter) Close() error { return nil }

func (c *Controller) Mknod(ctx context.Context, opts archivedriver.AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error {
	return c.inner.Mknod(ctx, opts, name, typ, template)
}

func (c *Controller) Unlink(ctx context.Context, opts archivedriver.AccessOptions, name string) error {
	if err := c.inner.Unlink(ctx, opts, name); err != nil {
		return err
	}
	c.entries.invalidateInput(name)
	return nil
}

// Sync implements §4.6's flush-on-sync policy (§4.7 step 3): dirty
// buffers are flushed through the inner layer's Output in directory
// order (the Open Question decision of DESIGN.md — lexicographic byte
// order by entry name), collecting per-entry failures without
// aborting later flushes, before delegating to the inner layer for
// steps 4–5 (archive commit, tear-down).
func (c *Controller) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error {
	names := c.entries.dirtyNames()
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		en := c.entries.get(name)
		if err := c.flushOne(ctx, name, en); err != nil && firstErr == nil {
			firstErr = vfsmodel.Wrap(err, vfsmodel.SyncWarning, "vfscache: flush %s", name)
		}
	}
	if c.index != nil {
		_ = c.index.Record(c.mp.String(), c.entries.dirtyNames())
	}

	if opts.Has(vfsmodel.ClearCache) {
		c.entries.clear()
	}

	if err := c.inner.Sync(ctx, opts); err != nil {
		return err
	}
	return firstErr
}

func (c *Controller) flushOne(ctx context.Context, name string, en *entry) error {
	en.mu.Lock()
	defer en.mu.Unlock()
	if !en.dirty || en.output == nil {
		return nil
	}
	out, err := c.inner.Output(ctx, vfsmodel.AccessOptions(0), name, nil)
	if err != nil {
		return err
	}
	stream, err := out.OpenStream(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	bs, err := en.output.Bytes()
	if err != nil {
		return err
	}
	if _, err := stream.Write(bs); err != nil {
		return err
	}
	en.dirty = false
	return nil
}

var _ archivedriver.Controller = (*Controller)(nil)
