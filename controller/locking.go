package controller

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/truevfs/truevfs/accountant"
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// DefaultWaitTimeout is the lock-retry back-off ceiling of §5 (default
// 100ms).
const DefaultWaitTimeout = 100 * time.Millisecond

// LockingController is the outermost decorator of §4.3 layer 1: it
// serializes concurrent owners per federated file system with a
// reentrant RW-lock and implements the lock-retry protocol, catching
// vfsmodel.NeedsWriteLock (retry under the write lock) and
// vfsmodel.NeedsLockRetry (release everything, back off, retry from
// the top) so neither kind ever reaches user code, per §7's
// propagation policy.
//
// Retry backoff is paced by a rate.Limiter rather than a bare sleep,
// the way backend/cache's rateLimiter throttles requests to a wrapped
// remote — it keeps a thundering herd of retrying goroutines from
// busy-looping a single contended mount point.
type LockingController struct {
	mp          *vfspath.MountPoint
	inner       archivedriver.Controller
	lock        *rwlock
	waitTimeout time.Duration
	limiter     *rate.Limiter
}

// NewLockingController wraps inner with the locking layer for mp.
func NewLockingController(mp *vfspath.MountPoint, inner archivedriver.Controller) *LockingController {
	return &LockingController{
		mp:          mp,
		inner:       inner,
		lock:        newRWLock(),
		waitTimeout: DefaultWaitTimeout,
		limiter:     rate.NewLimiter(rate.Every(DefaultWaitTimeout), 1),
	}
}

func (c *LockingController) MountPoint() *vfspath.MountPoint { return c.mp }

// withLock runs fn once under the read (or write, if write) lock,
// retrying under the write lock when fn reports NeedsWriteLock, and
// restarting the whole attempt after a rate-limited backoff when fn
// (or the lock-order check) reports NeedsLockRetry.
func (c *LockingController) withLock(ctx context.Context, write bool, fn func(ctx context.Context) error) error {
	owner := accountant.OwnerFrom(ctx)
	ctx = accountant.WithOwner(ctx, owner)
	for {
		ls := lockSetFrom(ctx)
		if ls.violatesOrder(c.mp) {
			c.backoff(ctx)
			continue
		}
		lockedCtx := ls.withCtx(ctx, c.mp)

		if write {
			c.lock.lock(owner)
		} else {
			c.lock.rLock(owner)
		}
		err := fn(lockedCtx)

		switch {
		case !write && vfsmodel.Of(err, vfsmodel.NeedsWriteLock):
			c.lock.rUnlock(owner)
			c.lock.lock(owner)
			err = fn(lockedCtx)
			c.lock.unlock(owner)
		case write:
			c.lock.unlock(owner)
		default:
			c.lock.rUnlock(owner)
		}

		if vfsmodel.Of(err, vfsmodel.NeedsLockRetry) {
			c.backoff(ctx)
			continue
		}
		return err
	}
}

// backoff paces a lock-retry attempt through c's rate.Limiter rather
// than a bare sleep, so many goroutines retrying the same contended
// mount point drain through it one at a time instead of busy-looping.
// A context deadline or cancellation short-circuits the wait.
func (c *LockingController) backoff(ctx context.Context) {
	if c.waitTimeout <= 0 {
		return
	}
	_ = c.limiter.Wait(ctx)
}

func (c *LockingController) Stat(ctx context.Context, opts archivedriver.AccessOptions, name string) (*vfsmodel.Entry, error) {
	var entry *vfsmodel.Entry
	err := c.withLock(ctx, false, func(ctx context.Context) error {
		e, err := c.inner.Stat(ctx, opts, name)
		entry = e
		return err
	})
	return entry, err
}

func (c *LockingController) CheckAccess(ctx context.Context, opts archivedriver.AccessOptions, name string, types ...vfsmodel.AccessType) error {
	return c.withLock(ctx, false, func(ctx context.Context) error {
		return c.inner.CheckAccess(ctx, opts, name, types...)
	})
}

func (c *LockingController) SetReadOnly(ctx context.Context, name string) error {
	return c.withLock(ctx, true, func(ctx context.Context) error {
		return c.inner.SetReadOnly(ctx, name)
	})
}

func (c *LockingController) SetTime(ctx context.Context, opts archivedriver.AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error {
	return c.withLock(ctx, true, func(ctx context.Context) error {
		return c.inner.SetTime(ctx, opts, name, times)
	})
}

func (c *LockingController) Input(ctx context.Context, opts archivedriver.AccessOptions, name string) (iosocket.InputSocket, error) {
	var sock iosocket.InputSocket
	err := c.withLock(ctx, false, func(ctx context.Context) error {
		s, err := c.inner.Input(ctx, opts, name)
		sock = s
		return err
	})
	return sock, err
}

func (c *LockingController) Output(ctx context.Context, opts archivedriver.AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	var sock iosocket.OutputSocket
	err := c.withLock(ctx, true, func(ctx context.Context) error {
		s, err := c.inner.Output(ctx, opts, name, template)
		sock = s
		return err
	})
	return sock, err
}

func (c *LockingController) Mknod(ctx context.Context, opts archivedriver.AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error {
	return c.withLock(ctx, true, func(ctx context.Context) error {
		return c.inner.Mknod(ctx, opts, name, typ, template)
	})
}

func (c *LockingController) Unlink(ctx context.Context, opts archivedriver.AccessOptions, name string) error {
	return c.withLock(ctx, true, func(ctx context.Context) error {
		return c.inner.Unlink(ctx, opts, name)
	})
}

func (c *LockingController) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error {
	return c.withLock(ctx, true, func(ctx context.Context) error {
		return c.inner.Sync(ctx, opts)
	})
}

var _ archivedriver.Controller = (*LockingController)(nil)
