// Package pacemaker implements the bounded LRU of touched-or-mounted
// mount points described in SPEC_FULL.md's supplemented resource-
// governor component: once more than a configured number of mount
// points have been touched without an intervening sync, the least
// recently touched ones are proactively, partially synced so a long
// session never accumulates unbounded dirty state across the mount
// tree.
//
// Grounded on backend/cache's CleanUpCache eviction loop and its
// background goroutine (cache.go's NewFs: "go func(){ for { time.Sleep(...);
// ...; f.CleanUpCache(false) } }()") — generalized from a single
// chunk-size threshold to an LRU of mount points, synced through a
// caller-supplied callback rather than a cache-specific method so this
// package has no dependency on manager or controller.
package pacemaker

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/truevfs/truevfs/internal/vfslog"
	"github.com/truevfs/truevfs/vfspath"
)

// DefaultCapacity is the default bound on touched-but-unsynced mount
// points before the pacemaker starts evicting, per SPEC_FULL.md.
const DefaultCapacity = 5

// SyncFunc partially syncs a single mount point's controller. Supplied
// by the kernel (Kernel.partialSync in kernel.go), which has access to
// the manager.
type SyncFunc func(ctx context.Context, mp *vfspath.MountPoint) error

// Pacemaker tracks the most recently touched mount points, up to
// Capacity, evicting (and syncing) the least recently touched entry
// whenever Touch would exceed the bound.
type Pacemaker struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recently touched
	index    map[string]*list.Element // mp.String() -> element holding *vfspath.MountPoint
	sync     SyncFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Pacemaker with the given capacity (DefaultCapacity
// if <= 0) and sync callback.
func New(capacity int, sync SyncFunc) *Pacemaker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pacemaker{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
		sync:     sync,
	}
}

// Touch records mp as most recently touched (mounted or accessed). If
// this pushes the tracked set beyond Capacity, the least recently
// touched mount point is evicted and partially synced.
func (p *Pacemaker) Touch(ctx context.Context, mp *vfspath.MountPoint) {
	key := mp.String()

	p.mu.Lock()
	if el, ok := p.index[key]; ok {
		p.order.MoveToFront(el)
		p.mu.Unlock()
		return
	}
	el := p.order.PushFront(mp)
	p.index[key] = el

	var evicted *vfspath.MountPoint
	if p.order.Len() > p.capacity {
		back := p.order.Back()
		evicted = back.Value.(*vfspath.MountPoint)
		p.order.Remove(back)
		delete(p.index, evicted.String())
	}
	p.mu.Unlock()

	if evicted != nil {
		p.flush(ctx, evicted)
	}
}

// Forget removes mp from the tracked set without syncing it — used
// when a mount point has already been explicitly synced or unmounted
// so the pacemaker doesn't double-flush it later.
func (p *Pacemaker) Forget(mp *vfspath.MountPoint) {
	key := mp.String()
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.index[key]; ok {
		p.order.Remove(el)
		delete(p.index, key)
	}
}

// Len returns the number of currently tracked mount points.
func (p *Pacemaker) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

func (p *Pacemaker) flush(ctx context.Context, mp *vfspath.MountPoint) {
	vfslog.Debugf(mp, "pacemaker evicting, partial sync")
	if err := p.sync(ctx, mp); err != nil {
		vfslog.Infof(mp, "pacemaker partial sync: %v", err)
	}
}

// Start runs a background loop that, every interval, flushes the
// single least recently touched mount point if any are tracked — a
// safety net against a session that never exceeds Capacity but also
// never syncs on its own, mirroring the teacher's periodic
// CleanUpCache(false) goroutine. Stop ends the loop.
func (p *Pacemaker) Start(ctx context.Context, interval time.Duration) {
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go func() {
		defer close(p.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.flushOldest(ctx)
			}
		}
	}()
}

func (p *Pacemaker) flushOldest(ctx context.Context) {
	p.mu.Lock()
	back := p.order.Back()
	if back == nil {
		p.mu.Unlock()
		return
	}
	mp := back.Value.(*vfspath.MountPoint)
	p.order.Remove(back)
	delete(p.index, mp.String())
	p.mu.Unlock()

	p.flush(ctx, mp)
}

// Stop ends the background loop started by Start and waits for it to
// exit. Safe to call on a Pacemaker that was never started.
func (p *Pacemaker) Stop() {
	if p.stopCh == nil {
		return
	}
	close(p.stopCh)
	<-p.doneCh
	p.stopCh = nil
}
