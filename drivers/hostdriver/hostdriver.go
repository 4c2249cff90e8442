// Package hostdriver implements the non-federated host file system
// controller: the bottom of every decorator chain, rooted at a leaf
// (host) vfspath.MountPoint's Opaque directory. It is not registered
// in the archivedriver registry — a host mount point has no Scheme to
// look a Driver up by, so the kernel's controller factory
// (Kernel.factory in kernel.go) constructs a
// hostdriver.Controller directly instead of going through
// archivedriver.Lookup.
//
// Grounded on backend/archive/base/base.go's Fs/Object pattern: a
// thin wrapper translating VFS-shaped operations onto an underlying
// file system, here os.* instead of a wrapped fs.Fs, since the host
// layer has no further archive to delegate to.
package hostdriver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// Controller serves name lookups and I/O directly off the local file
// system rooted at mp's Opaque directory.
type Controller struct {
	mp   *vfspath.MountPoint
	root string
}

// New constructs a Controller rooted at mp.Opaque. mp must be a host
// (leaf) mount point.
func New(mp *vfspath.MountPoint) *Controller {
	return &Controller{mp: mp, root: filepath.Clean(mp.Opaque)}
}

func (c *Controller) MountPoint() *vfspath.MountPoint { return c.mp }

func (c *Controller) path(name string) string {
	return filepath.Join(c.root, filepath.FromSlash(name))
}

func (c *Controller) Stat(ctx context.Context, opts archivedriver.AccessOptions, name string) (*vfsmodel.Entry, error) {
	fi, err := os.Lstat(c.path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "stat %s", name)
	}

	typ := vfsmodel.File
	switch {
	case fi.IsDir():
		typ = vfsmodel.Directory
	case fi.Mode()&os.ModeSymlink != 0:
		typ = vfsmodel.Symlink
	}

	e := vfsmodel.NewEntry(name, typ)
	if typ == vfsmodel.File {
		e.Sizes[vfsmodel.SizeData] = fi.Size()
		e.Sizes[vfsmodel.SizeStorage] = fi.Size()
	}
	e.Times[vfsmodel.AccessWrite] = fi.ModTime()

	if typ == vfsmodel.Directory {
		entries, err := os.ReadDir(c.path(name))
		if err != nil {
			return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "readdir %s", name)
		}
		for _, de := range entries {
			e.Children = append(e.Children, de.Name())
		}
	}
	return e, nil
}

func (c *Controller) CheckAccess(ctx context.Context, opts archivedriver.AccessOptions, name string, types ...vfsmodel.AccessType) error {
	fi, err := os.Stat(c.path(name))
	if os.IsNotExist(err) {
		return vfsmodel.NewKindError(vfsmodel.NoSuchEntry, "%s", name)
	}
	if err != nil {
		return vfsmodel.Wrap(err, vfsmodel.IoFailure, "stat %s", name)
	}
	mode := fi.Mode()
	for _, t := range types {
		switch t {
		case vfsmodel.Readable:
			if mode&0o444 == 0 {
				return vfsmodel.NewKindError(vfsmodel.AccessDenied, "%s not readable", name)
			}
		case vfsmodel.Writable:
			if mode&0o222 == 0 {
				return vfsmodel.NewKindError(vfsmodel.AccessDenied, "%s not writable", name)
			}
		case vfsmodel.Executable:
			if mode&0o111 == 0 {
				return vfsmodel.NewKindError(vfsmodel.AccessDenied, "%s not executable", name)
			}
		}
	}
	return nil
}

func (c *Controller) SetReadOnly(ctx context.Context, name string) error {
	fi, err := os.Stat(c.path(name))
	if err != nil {
		return vfsmodel.Wrap(err, vfsmodel.IoFailure, "stat %s", name)
	}
	if err := os.Chmod(c.path(name), fi.Mode()&^0o222); err != nil {
		return vfsmodel.Wrap(err, vfsmodel.IoFailure, "chmod %s", name)
	}
	return nil
}

func (c *Controller) SetTime(ctx context.Context, opts archivedriver.AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error {
	mtime, ok := times[vfsmodel.AccessWrite]
	if !ok {
		return nil
	}
	t := time.Unix(0, mtime)
	if err := os.Chtimes(c.path(name), t, t); err != nil {
		return vfsmodel.Wrap(err, vfsmodel.IoFailure, "chtimes %s", name)
	}
	return nil
}

func (c *Controller) Input(ctx context.Context, opts archivedriver.AccessOptions, name string) (iosocket.InputSocket, error) {
	return iosocket.NewFuncInputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return c.Stat(ctx, opts, name) },
		func(ctx context.Context) (io.ReadCloser, error) {
			f, err := os.Open(c.path(name))
			if os.IsNotExist(err) {
				return nil, vfsmodel.NewKindError(vfsmodel.NoSuchEntry, "%s", name)
			}
			if err != nil {
				return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "open %s", name)
			}
			return f, nil
		},
	), nil
}

func (c *Controller) Output(ctx context.Context, opts archivedriver.AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	return iosocket.NewFuncOutputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return template, nil },
		func(ctx context.Context) (io.WriteCloser, error) {
			flags := os.O_WRONLY | os.O_CREATE
			if opts.Has(vfsmodel.Append) {
				flags |= os.O_APPEND
			} else if !opts.Has(vfsmodel.Grow) {
				flags |= os.O_TRUNC
			}
			if opts.Has(vfsmodel.Exclusive) {
				flags |= os.O_EXCL
			}
			f, err := os.OpenFile(c.path(name), flags, 0o666)
			if os.IsExist(err) {
				return nil, vfsmodel.NewKindError(vfsmodel.AlreadyExists, "%s", name)
			}
			if err != nil {
				return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "open %s", name)
			}
			return f, nil
		},
	), nil
}

func (c *Controller) Mknod(ctx context.Context, opts archivedriver.AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error {
	p := c.path(name)
	switch typ {
	case vfsmodel.Directory:
		mkdir := os.Mkdir
		if opts.Has(vfsmodel.CreateParents) {
			mkdir = func(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
		}
		if err := mkdir(p, 0o777); err != nil {
			if os.IsExist(err) {
				return vfsmodel.NewKindError(vfsmodel.AlreadyExists, "%s", name)
			}
			return vfsmodel.Wrap(err, vfsmodel.IoFailure, "mkdir %s", name)
		}
		return nil
	case vfsmodel.File:
		if opts.Has(vfsmodel.CreateParents) {
			if err := os.MkdirAll(filepath.Dir(p), 0o777); err != nil {
				return vfsmodel.Wrap(err, vfsmodel.IoFailure, "mkdir parents of %s", name)
			}
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o666)
		if os.IsExist(err) {
			return vfsmodel.NewKindError(vfsmodel.AlreadyExists, "%s", name)
		}
		if err != nil {
			return vfsmodel.Wrap(err, vfsmodel.IoFailure, "create %s", name)
		}
		return f.Close()
	default:
		return vfsmodel.NewKindError(vfsmodel.IoFailure, "hostdriver: unsupported entry type %s for %s", typ, name)
	}
}

func (c *Controller) Unlink(ctx context.Context, opts archivedriver.AccessOptions, name string) error {
	fi, err := os.Lstat(c.path(name))
	if os.IsNotExist(err) {
		return vfsmodel.NewKindError(vfsmodel.NoSuchEntry, "%s", name)
	}
	if err != nil {
		return vfsmodel.Wrap(err, vfsmodel.IoFailure, "stat %s", name)
	}
	if fi.IsDir() {
		if err := os.Remove(c.path(name)); err != nil {
			return vfsmodel.Wrap(err, vfsmodel.IoFailure, "rmdir %s (must be empty)", name)
		}
		return nil
	}
	if err := os.Remove(c.path(name)); err != nil {
		return vfsmodel.Wrap(err, vfsmodel.IoFailure, "remove %s", name)
	}
	return nil
}

// Sync is a no-op: every operation above already hit the real file
// system directly, so there is nothing buffered here to flush.
func (c *Controller) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error { return nil }

var _ archivedriver.Controller = (*Controller)(nil)
