// Package manager implements the manager of §4.7: interning
// controllers by mount point, building the parent chain bottom-up
// before a child, and driving sync across every live controller in
// deeper-first topological order.
//
// Grounded on backend/archive.Fs's archives map[string]*archive
// (findArchive, lazy init guarded by a sync.Mutex) generalized from
// "one level of archive per Fs" to the manager's full mount-point
// tree, plus lib/cache's test-revealed Get/Pin/expire shape (visible
// via cache.Get/cache.PinUntilFinalized call sites in cache.go and
// archive.go) for the intern-by-key, keep-while-referenced idiom.
package manager

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/internal/vfslog"
	"github.com/truevfs/truevfs/syncutil"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// Factory builds the controller for mp, given its already-interned
// parent controller (nil for a host mount point). The concrete factory
// is Kernel.factory in kernel.go, where the driver registry,
// accountant, and cache pool are wired together per
// controller.Stack/HostStack.
type Factory func(mp *vfspath.MountPoint, parent archivedriver.Controller) (archivedriver.Controller, error)

// Manager interns controllers by mount point per §3's "a mount point
// has at most one live controller in the manager at any time"
// invariant.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]archivedriver.Controller
	order       []string // insertion order, for stable iteration when depths tie
	factory     Factory
}

// New constructs an empty Manager using factory to build controllers
// on first access.
func New(factory Factory) *Manager {
	return &Manager{controllers: make(map[string]archivedriver.Controller), factory: factory}
}

// Controller interns mp's controller, creating the parent chain first
// bottom-up if needed, per §4.7's `controller(mountPoint, driver)`
// operation.
func (m *Manager) Controller(mp *vfspath.MountPoint) (archivedriver.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controllerLocked(mp)
}

func (m *Manager) controllerLocked(mp *vfspath.MountPoint) (archivedriver.Controller, error) {
	key := mp.String()
	if c, ok := m.controllers[key]; ok {
		return c, nil
	}

	var parent archivedriver.Controller
	if mp.Parent != nil {
		p, err := m.controllerLocked(mp.Parent)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	c, err := m.factory(mp, parent)
	if err != nil {
		return nil, err
	}
	m.controllers[key] = c
	m.order = append(m.order, key)
	vfslog.Debugf(mp, "controller interned")
	return c, nil
}

// Size returns the number of live (interned) controllers.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}

// MountPoints returns the canonical string form of every currently
// interned mount point, in intern order, for the management surface's
// introspection endpoint.
func (m *Manager) MountPoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Controllers returns every currently interned controller, in intern
// order, for the §6 management surface: the metrics package walks
// this slice to report FileSystemsTotal/Mounted/TopLevelArchives
// without either package depending on the other's internals.
func (m *Manager) Controllers() []archivedriver.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]archivedriver.Controller, 0, len(m.order))
	for _, key := range m.order {
		if c, ok := m.controllers[key]; ok {
			out = append(out, c)
		}
	}
	return out
}

// depth counts mp's ancestors, used to order sync deepest-first.
func depth(mp *vfspath.MountPoint) int {
	n := 0
	for cur := mp; cur != nil; cur = cur.Parent {
		n++
	}
	return n
}

// deepestFirst returns every live controller, deepest mount point
// first, breaking ties by original intern order — the topological
// order §4.7 requires "for correct sync": a nested archive must be
// flushed and possibly unmounted before its parent tries to commit
// its own bytes.
func (m *Manager) deepestFirst() []archivedriver.Controller {
	m.mu.Lock()
	type item struct {
		key string
		c   archivedriver.Controller
		d   int
	}
	items := make([]item, 0, len(m.controllers))
	for _, key := range m.order {
		c, ok := m.controllers[key]
		if !ok {
			continue
		}
		items = append(items, item{key: key, c: c, d: depth(c.MountPoint())})
	}
	m.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool { return items[i].d > items[j].d })
	out := make([]archivedriver.Controller, len(items))
	for i, it := range items {
		out[i] = it.c
	}
	return out
}

// tiers groups deepestFirst's result into depth-descending bands:
// every controller in one band is independent of every other
// controller in that same band (neither is an ancestor of the
// other), so a band may be synced concurrently; bands themselves
// still run in strict deepest-first order, a child's band always
// completing before its parent's band starts.
func (m *Manager) tiers() [][]archivedriver.Controller {
	flat := m.deepestFirst()
	var tiers [][]archivedriver.Controller
	var curDepth int
	var cur []archivedriver.Controller
	for i, c := range flat {
		d := depth(c.MountPoint())
		if i == 0 {
			curDepth = d
		}
		if d != curDepth {
			tiers = append(tiers, cur)
			cur = nil
			curDepth = d
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		tiers = append(tiers, cur)
	}
	return tiers
}

// Sync invokes Sync on every live controller, deepest mount points
// first; independent controllers at the same depth sync concurrently
// via errgroup, the way backend/cache's background workers run
// alongside the main request path. A controller error carrying the
// vfsmodel.SyncFatal kind (mount may be inconsistent, e.g. a failed
// archive commit) is folded into the Builder as fatal via Failf; every
// other error is a warning via Warnf — only the Builder's resulting
// Composite, a single SyncWarning or SyncFatal per §7, is returned.
// Controllers that synced with UMOUNT set are dropped from the intern
// table after a sync that returned no error (a warning keeps them
// interned), so a subsequent
// Controller() call remounts them fresh.
func (m *Manager) Sync(ctx context.Context, opts vfsmodel.SyncOptions) error {
	var b syncutil.Builder
	var bMu sync.Mutex
	umount := opts.Has(vfsmodel.Umount)

	for _, tier := range m.tiers() {
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range tier {
			c := c
			g.Go(func() error {
				if err := c.Sync(gctx, opts); err != nil {
					bMu.Lock()
					if vfsmodel.Of(err, vfsmodel.SyncFatal) {
						b.Failf(err, "sync %s", c.MountPoint())
					} else {
						b.Warnf(err, "sync %s", c.MountPoint())
					}
					bMu.Unlock()
					return nil
				}
				if umount {
					m.drop(c.MountPoint())
				}
				return nil
			})
		}
		_ = g.Wait() // errors already folded into b above; g never returns one itself
	}
	return b.Check()
}

func (m *Manager) drop(mp *vfspath.MountPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mp.String()
	delete(m.controllers, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
