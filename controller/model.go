// Package controller implements the decorator stack of §4.3: the
// generic Locking, Resource, and Context layers that wrap a driver's
// own target controller, plus the false-positive reroute helper every
// driver's target controller uses to implement layer 6 (parent
// pass-through).
//
// Grounded on the wrapping-Fs idiom shared by backend/cache.Fs,
// backend/chunker.Fs and backend/archive.Fs: each stores its wrapped
// fs.Fs as a plain field and implements Features().Fill(ctx,
// f).Mask(ctx, wrapped).WrapsFs(f, wrapped) to compose cleanly without
// inheritance — the same "own your inner layer by value, delegate
// what you don't override" shape DESIGN NOTES §9 asks for
// ("decorator chain polymorphism... avoid inheritance").
package controller

import (
	"sync"

	"github.com/truevfs/truevfs/vfspath"
)

// Model is the mutable per-mount state of §3: mount point, the
// touched-since-last-sync flag, and the link to the parent model.
type Model struct {
	mu         sync.Mutex
	mountPoint *vfspath.MountPoint
	parent     *Model
	touched    bool
}

// NewModel constructs a Model for mp, optionally linked to parent
// (nil for a host mount point).
func NewModel(mp *vfspath.MountPoint, parent *Model) *Model {
	return &Model{mountPoint: mp, parent: parent}
}

// ModelHolder is implemented by any decorator that owns a Model, so a
// child mount point's ContextController can link its own Model to its
// parent's without the manager or the driver registry having to know
// about Model at all.
type ModelHolder interface {
	Model() *Model
}

// parentModelOf returns parent's Model if parent implements
// ModelHolder, nil otherwise — a nil parent (host mount point) or a
// parent that predates decoration (a test double) simply yields a
// root Model with no parent link.
func parentModelOf(parent interface{}) *Model {
	if h, ok := parent.(ModelHolder); ok {
		return h.Model()
	}
	return nil
}

// MountPoint returns the model's mount point.
func (m *Model) MountPoint() *vfspath.MountPoint { return m.mountPoint }

// Parent returns the parent model, or nil for a host mount point.
func (m *Model) Parent() *Model { return m.parent }

// Touched reports whether any write has occurred since the last sync.
func (m *Model) Touched() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touched
}

// SetTouched marks the model touched; called by any operation that
// mutates archive content or structure.
func (m *Model) SetTouched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = true
}

// ClearTouched resets the touched flag, the last step of any sync
// that returns no error (§4.7 step 5).
func (m *Model) ClearTouched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = false
}
