package controller

import (
	"context"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// ParentFallback is embedded by every driver's target controller
// (the DefaultArchive of §4.3 layer 5) to implement layer 6's "parent
// pass-through": on vfsmodel.FalsePositive or PersistentFalsePositive,
// the operation is rerouted to Parent, treating the archive's own
// mount point as a plain entry name in Parent's namespace — exactly
// DESIGN NOTES §9's "use an error variant; propagate it up the chain;
// the outermost archive layer catches and reroutes" guidance, and the
// S6 testable property (stat of a non-archive "archive" returns nil,
// not an error).
//
// PersistentFalsePositive is additionally cached on this
// ParentFallback (its persistent field) so a
// mount point that already failed probing this sync generation is not
// re-probed on every call.
type ParentFallback struct {
	MountPoint   *vfspath.MountPoint
	Parent       archivedriver.Controller
	ArchiveEntry string // this archive's own name within Parent's namespace

	persistent bool
}

// Reroute runs op; if op fails with FalsePositive or
// PersistentFalsePositive, or if a prior call already marked this
// mount point persistently false-positive, it instead runs fallback
// against Parent (e.g. Parent.Stat/Input/Output on ArchiveEntry).
func (f *ParentFallback) Reroute(op func() error, fallback func() error) error {
	if f.persistent {
		return fallback()
	}
	err := op()
	if vfsmodel.Of(err, vfsmodel.PersistentFalsePositive) {
		f.persistent = true
		return fallback()
	}
	if vfsmodel.Of(err, vfsmodel.FalsePositive) {
		return fallback()
	}
	return err
}

// ClearPersistent resets the persistent false-positive cache; called
// by sync (§4.4's "cached on the model until sync").
func (f *ParentFallback) ClearPersistent() { f.persistent = false }

// StatFallback performs the Stat half of Reroute's fallback: a
// false-positive archive has no entries of its own, so Stat of any
// name inside it reports nil (absent) rather than an error. The file
// itself stays reachable through InputFallback.
func (f *ParentFallback) StatFallback(ctx context.Context, opts archivedriver.AccessOptions) (*vfsmodel.Entry, error) {
	return nil, nil
}

// InputFallback asks Parent for an input socket on this archive's own
// entry, treating the archive as a plain file.
func (f *ParentFallback) InputFallback(ctx context.Context, opts archivedriver.AccessOptions) (iosocket.InputSocket, error) {
	return f.Parent.Input(ctx, opts, f.ArchiveEntry)
}
