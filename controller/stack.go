package controller

import (
	"github.com/truevfs/truevfs/accountant"
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/vfspath"
)

// CacheDecorator wraps a target controller with the cache layer
// (§4.3 layer 3); vfscache.Wrap satisfies this signature. Accepting it
// as a function rather than importing vfscache directly keeps this
// package (which vfscache itself does not need to depend on) free of
// a dependency cycle.
type CacheDecorator func(mp *vfspath.MountPoint, target archivedriver.Controller) archivedriver.Controller

// Stack assembles the full federated decorator chain of §4.3 around
// target (a driver's own DefaultArchive controller, already wired to
// Parent via ParentFallback): Locking(Resource(Cache(Context(target)))),
// outer to inner exactly as listed. parent is the already-decorated
// controller of mp's enclosing mount point (nil for a top-level
// archive directly on a host mount point), linking this mount point's
// Model to its parent's per §3. counter may be nil, disabling the §6
// BytesRead/BytesWritten tally.
func Stack(mp *vfspath.MountPoint, target archivedriver.Controller, acc *accountant.Accountant, cache CacheDecorator, parent archivedriver.Controller, counter ByteCounter) archivedriver.Controller {
	c := NewContextController(mp, target, parent)
	var withCache archivedriver.Controller = c
	if cache != nil {
		withCache = cache(mp, c)
	}
	resourced := NewResourceController(mp, withCache, acc, counter)
	return NewLockingController(mp, resourced)
}

// HostStack assembles the non-federated stack of §4.3's closing note
// ("Non-federated (host) controllers omit layers 3–5"): just Locking
// around Resource around the host controller itself.
func HostStack(mp *vfspath.MountPoint, host archivedriver.Controller, acc *accountant.Accountant, counter ByteCounter) archivedriver.Controller {
	resourced := NewResourceController(mp, host, acc, counter)
	return NewLockingController(mp, resourced)
}
