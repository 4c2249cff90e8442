package controller

import (
	"context"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

type accessOptionsKey struct{}

// WithAccessOptions snapshots opts onto ctx, the per-archive
// thread-local of §4.3 layer 4: helpers several calls deep (charset
// encoding, compression-level selection, buffer pooling) read it via
// AccessOptionsFrom instead of threading opts through every signature.
func WithAccessOptions(ctx context.Context, opts archivedriver.AccessOptions) context.Context {
	return context.WithValue(ctx, accessOptionsKey{}, opts)
}

// AccessOptionsFrom returns the options snapshotted by the nearest
// enclosing ContextController, or zero if none is set.
func AccessOptionsFrom(ctx context.Context) archivedriver.AccessOptions {
	if opts, ok := ctx.Value(accessOptionsKey{}).(archivedriver.AccessOptions); ok {
		return opts
	}
	return 0
}

// ContextController is decorator layer 4 of §4.3: it snapshots each
// operation's access options onto ctx before delegating inward, and
// owns this mount point's §3 Model — the touched-since-last-sync flag
// every mutating operation sets and a clean sync clears.
type ContextController struct {
	mp    *vfspath.MountPoint
	inner archivedriver.Controller
	model *Model
}

// NewContextController wraps inner for mp, linking its Model to
// parent's (nil for a host mount point or an undecorated parent).
func NewContextController(mp *vfspath.MountPoint, inner archivedriver.Controller, parent archivedriver.Controller) *ContextController {
	return &ContextController{mp: mp, inner: inner, model: NewModel(mp, parentModelOf(parent))}
}

func (c *ContextController) MountPoint() *vfspath.MountPoint { return c.mp }

// Model returns this mount point's Model, satisfying ModelHolder so a
// nested archive's ContextController can link up to it.
func (c *ContextController) Model() *Model { return c.model }

func (c *ContextController) Stat(ctx context.Context, opts archivedriver.AccessOptions, name string) (*vfsmodel.Entry, error) {
	return c.inner.Stat(WithAccessOptions(ctx, opts), opts, name)
}

func (c *ContextController) CheckAccess(ctx context.Context, opts archivedriver.AccessOptions, name string, types ...vfsmodel.AccessType) error {
	return c.inner.CheckAccess(WithAccessOptions(ctx, opts), opts, name, types...)
}

func (c *ContextController) SetReadOnly(ctx context.Context, name string) error {
	return c.inner.SetReadOnly(ctx, name)
}

func (c *ContextController) SetTime(ctx context.Context, opts archivedriver.AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error {
	return c.inner.SetTime(WithAccessOptions(ctx, opts), opts, name, times)
}

func (c *ContextController) Input(ctx context.Context, opts archivedriver.AccessOptions, name string) (iosocket.InputSocket, error) {
	return c.inner.Input(WithAccessOptions(ctx, opts), opts, name)
}

func (c *ContextController) Output(ctx context.Context, opts archivedriver.AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	c.model.SetTouched()
	return c.inner.Output(WithAccessOptions(ctx, opts), opts, name, template)
}

func (c *ContextController) Mknod(ctx context.Context, opts archivedriver.AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error {
	c.model.SetTouched()
	return c.inner.Mknod(WithAccessOptions(ctx, opts), opts, name, typ, template)
}

func (c *ContextController) Unlink(ctx context.Context, opts archivedriver.AccessOptions, name string) error {
	c.model.SetTouched()
	return c.inner.Unlink(WithAccessOptions(ctx, opts), opts, name)
}

func (c *ContextController) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error {
	err := c.inner.Sync(ctx, opts)
	if err == nil {
		c.model.ClearTouched()
	}
	return err
}

var _ archivedriver.Controller = (*ContextController)(nil)
