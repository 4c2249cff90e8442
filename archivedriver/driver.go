// Package archivedriver defines the archive driver contract of §4.4
// and the Controller operation surface of §4.2, plus the registry
// that maps a vfspath.Scheme to the driver implementing it.
//
// Grounded on backend/archive/archiver/archiver.go's Archiver struct
// and Archivers/Register registry, generalized from a single
// New-func-plus-extension pair into the fuller driver contract of
// §4.4 (charset, entry construction, input/output service factories,
// controller assembly) that a from-scratch federated-archive VFS
// needs beyond what rclone's flatter archive-as-directory wrapping
// required.
package archivedriver

import (
	"context"

	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// Charset names an entry-name encoding, e.g. "UTF-8", "CP437".
type Charset string

// AccessOption is re-exported for driver implementors' convenience;
// the canonical definition lives in vfsmodel.
type AccessOption = vfsmodel.AccessOption

// AccessOptions is the bit-field controller operations take, per
// §4.2.
type AccessOptions = vfsmodel.AccessOptions

// InputService is a mounted archive opened for reading: it enumerates
// entries and mints per-entry input sockets. Grounded on
// backend/archive/base/base.go's Fs, which lists and opens objects
// inside a mounted archive directory without committing callers to a
// concrete reader.
type InputService interface {
	// Entries lists every entry the archive contains, in the driver's
	// natural (on-disk) order.
	Entries(ctx context.Context) ([]*vfsmodel.Entry, error)
	// Entry looks up a single entry by name, returning nil if absent.
	Entry(ctx context.Context, name string) (*vfsmodel.Entry, error)
	// NewInputSocket mints a lazy input socket for name.
	NewInputSocket(name string) (iosocket.InputSocket, error)
	// Close releases any resources the service itself holds (e.g. a
	// parsed central directory); it does not close sockets minted
	// earlier.
	Close() error
}

// OutputService is a mounted archive opened for writing.
type OutputService interface {
	// NewOutputSocket mints a lazy output socket for entry.
	NewOutputSocket(entry *vfsmodel.Entry) (iosocket.OutputSocket, error)
	// Close finalizes and flushes the archive's structural data (e.g.
	// central directory, tar trailer) and releases resources.
	Close() error
}

// Controller is the per-mount-point operation surface every decorator
// layer and every driver's target layer implements, per §4.2. All
// operations accept opts as the subset of AccessOptions relevant to
// that call; opts is ignored where the operation has no optional
// behavior to modulate.
type Controller interface {
	// MountPoint identifies this controller; identity = mount point
	// per §3.
	MountPoint() *vfspath.MountPoint

	// Stat returns name's Entry, or (nil, nil) if absent. Read-lock
	// sufficient.
	Stat(ctx context.Context, opts AccessOptions, name string) (*vfsmodel.Entry, error)

	// CheckAccess fails with vfsmodel.NoSuchEntry or
	// vfsmodel.AccessDenied if name does not grant every capability in
	// types.
	CheckAccess(ctx context.Context, opts AccessOptions, name string, types ...vfsmodel.AccessType) error

	// SetReadOnly marks name read-only. Write-lock required.
	SetReadOnly(ctx context.Context, name string) error

	// SetTime updates the given access-kind timestamps on name.
	// Write-lock required.
	SetTime(ctx context.Context, opts AccessOptions, name string, times map[vfsmodel.AccessKind]int64) error

	// Input returns a lazy InputSocket for name; opening its stream
	// requires the write-lock.
	Input(ctx context.Context, opts AccessOptions, name string) (iosocket.InputSocket, error)

	// Output returns a lazy OutputSocket for name, using template for
	// the new entry's metadata defaults. May create missing parent
	// directories if opts has CreateParents set.
	Output(ctx context.Context, opts AccessOptions, name string, template *vfsmodel.Entry) (iosocket.OutputSocket, error)

	// Mknod creates a file or directory entry of the given type.
	Mknod(ctx context.Context, opts AccessOptions, name string, typ vfsmodel.EntryType, template *vfsmodel.Entry) error

	// Unlink removes name. Directories must be empty unless the caller
	// has already recursively unlinked their children.
	Unlink(ctx context.Context, opts AccessOptions, name string) error

	// Sync flushes and optionally unmounts this controller and its
	// descendants per §4.7.
	Sync(ctx context.Context, opts vfsmodel.SyncOptions) error
}

// Driver is the archive driver contract of §4.4: it knows how to
// encode entry names, construct entries, open an archive for reading
// or writing, and assemble the decorator stack around its own target
// controller.
type Driver interface {
	// Charset reports the entry-name encoding this driver's format
	// uses.
	Charset() Charset

	// Encodable reports whether name can be represented losslessly in
	// Charset().
	Encodable(name string) bool

	// Writable reports whether this driver's format supports
	// NewOutputService at all. A false value makes every write-shaped
	// Controller operation (Output, Mknod, Unlink, SetReadOnly,
	// SetTime) fail with vfsmodel.ReadOnly — a legitimate occupant of
	// that error kind (§4.2) for formats this corpus has no encoder
	// for (TAR.BZ2, EXE).
	Writable() bool

	// NewEntry constructs a driver-level entry for name, honoring the
	// type-shape invariant that directory names end in "/", seeding
	// defaults from template if non-nil.
	NewEntry(name string, typ vfsmodel.EntryType, opts AccessOptions, template *vfsmodel.Entry) *vfsmodel.Entry

	// NewInputService opens source for reading and enumerates its
	// entries.
	NewInputService(ctx context.Context, mp *vfspath.MountPoint, source iosocket.InputSocket) (InputService, error)

	// NewOutputService opens sink for writing. input is the service
	// returned by a prior NewInputService on the same archive, for
	// drivers that reuse existing structural data (e.g. ZIP central
	// directory reuse on update); nil for a fresh archive.
	NewOutputService(ctx context.Context, mp *vfspath.MountPoint, sink iosocket.OutputSocket, input InputService) (OutputService, error)

	// NewController assembles this driver's target-layer controller
	// (DefaultArchive of §4.3) around parent.
	NewController(mp *vfspath.MountPoint, parent Controller) Controller
}

// Registration pairs a Driver with the scheme and file-name suffixes
// it claims, mirroring Archiver{New, Extension} generalized to a
// scheme plus possibly several recognized suffixes (e.g. the "targz"
// scheme recognizes both "tgz" and "tar.gz").
type Registration struct {
	Scheme   vfspath.Scheme
	Suffixes []string
	Driver   Driver
}

var registry = map[vfspath.Scheme]Registration{}

// Register adds regs to the known driver registry, matching
// archiver.go's variadic Register(as ...Archiver). Later registrations
// for an already-registered scheme replace the earlier one, so an
// embedder can override a built-in driver.
func Register(regs ...Registration) {
	for _, r := range regs {
		registry[r.Scheme] = r
	}
}

// Lookup returns the driver registered for scheme, or (nil, false).
func Lookup(scheme vfspath.Scheme) (Driver, bool) {
	r, ok := registry[scheme]
	if !ok {
		return nil, false
	}
	return r.Driver, true
}

// SchemeForSuffix returns the scheme whose registration claims a
// file-name suffix matching name, the composite-suffix matching style
// of backend/archive/archive.go's findArchive (longest, most specific
// match wins: ".tar.gz" beats ".gz").
func SchemeForSuffix(name string) (vfspath.Scheme, bool) {
	var best vfspath.Scheme
	bestLen := -1
	for scheme, r := range registry {
		for _, suf := range r.Suffixes {
			if len(suf) > bestLen && hasSuffixFold(name, suf) {
				best = scheme
				bestLen = len(suf)
			}
		}
	}
	return best, bestLen >= 0
}

func hasSuffixFold(name, suffix string) bool {
	if len(name) < len(suffix) {
		return false
	}
	tail := name[len(name)-len(suffix):]
	return foldEqual(tail, suffix)
}

func foldEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Schemes returns every currently registered scheme, for diagnostics
// and the management surface's driver listing.
func Schemes() []vfspath.Scheme {
	out := make([]vfspath.Scheme, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	return out
}
