package vfspath

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedURI is returned when the opaque/relative part of a mount
// point string violates the grammar in §4.1.
var ErrMalformedURI = errors.New("vfspath: malformed mount-point uri")

// ErrNonabsolute is returned when a mount point lacks a scheme.
var ErrNonabsolute = errors.New("vfspath: mount point is not absolute (missing scheme)")

// archiveSeparator is the grammar token splitting a parent mount
// point from the archive entry nested inside it: "mount := scheme
// ':' (mount entry '!')? opaque".
const archiveSeparator = "!/"

// MountPoint identifies a federated file system's location in the
// tree. A MountPoint is either an opaque absolute host URI (a leaf,
// Parent == nil) or built from a Parent plus the Scheme/Entry of the
// archive nested inside it.
type MountPoint struct {
	// Parent is nil for a host (leaf) mount point.
	Parent *MountPoint
	Scheme Scheme
	// Entry names the archive inside Parent. For a leaf mount point
	// Entry is empty and Opaque carries the host URI instead.
	Entry EntryName
	// Opaque is the host URI string for a leaf mount point.
	Opaque string
}

// NewHostMountPoint builds a leaf mount point wrapping a literal host
// URI, e.g. "file:///tmp/work/".
func NewHostMountPoint(scheme Scheme, opaque string) (*MountPoint, error) {
	if scheme == "" {
		return nil, ErrNonabsolute
	}
	if !strings.HasSuffix(opaque, "/") {
		opaque += "/"
	}
	return &MountPoint{Scheme: scheme, Opaque: opaque}, nil
}

// NewNestedMountPoint builds a mount point for an archive named entry
// inside parent, interpreted by the driver registered under scheme.
func NewNestedMountPoint(parent *MountPoint, scheme Scheme, entry EntryName) (*MountPoint, error) {
	if parent == nil {
		return nil, ErrNonabsolute
	}
	if scheme == "" {
		return nil, ErrNonabsolute
	}
	if entry.IsRoot() {
		return nil, errors.Wrap(ErrMalformedURI, "nested mount point needs a non-root entry name")
	}
	// The archive itself is a regular FILE entry in its parent file
	// system — it is mounted AS a directory, but its own name does not
	// carry the directory-entry trailing slash.
	canon, err := NewEntryName(entry.String(), false)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedURI, err.Error())
	}
	return &MountPoint{Parent: parent, Scheme: scheme, Entry: canon}, nil
}

// IsHost reports whether m is a leaf (host) mount point.
func (m *MountPoint) IsHost() bool { return m.Parent == nil }

// String renders the canonical form of m. For leaf mount points this
// is "scheme:opaque"; a level nested directly in a host renders as
// "host!scheme:entry!/", and each deeper level appends
// "scheme:entry!/" to its parent's form.
func (m *MountPoint) String() string {
	if m == nil {
		return "<nil>"
	}
	if m.IsHost() {
		return string(m.Scheme) + ":" + m.Opaque
	}
	sep := ""
	if m.Parent.IsHost() {
		sep = "!"
	}
	return m.Parent.String() + sep + string(m.Scheme) + ":" + m.Entry.String() + archiveSeparator
}

// Equal compares two mount points by canonical string form, matching
// the Hashable-by-canonical-string-form invariant of §3.
func (m *MountPoint) Equal(other *MountPoint) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.String() == other.String()
}

// Chain returns the mount points from outermost (the host) to m
// itself, implementing decompose(path) of §4.1 restricted to the
// MountPoint axis.
func (m *MountPoint) Chain() []*MountPoint {
	if m == nil {
		return nil
	}
	var chain []*MountPoint
	for cur := m; cur != nil; cur = cur.Parent {
		chain = append([]*MountPoint{cur}, chain...)
	}
	return chain
}

// Parse splits uri on the archive separator "!/" into a chain of
// mount points, per the grammar
// "mount := scheme ':' ( mount entry '!' )? opaque". The canonical
// form produced by MountPoint.String is "hostScheme:hostOpaque/", then
// "!", then "schemeN:entryN!/" for each nested level, so Parse is its
// exact inverse: split on "!/", split the first part again at "/!"
// into the host leaf and the first nested level, and treat every
// nested part as a scheme:entry pair.
func Parse(uri string) (*MountPoint, error) {
	parts := strings.Split(uri, archiveSeparator)
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 || parts[0] == "" {
		return nil, ErrMalformedURI
	}
	if i := strings.Index(parts[0], "/!"); i >= 0 {
		parts = append([]string{parts[0][:i+1], parts[0][i+2:]}, parts[1:]...)
	}

	idx := strings.IndexByte(parts[0], ':')
	if idx < 0 {
		return nil, errors.Wrapf(ErrNonabsolute, "segment %q has no scheme", parts[0])
	}
	opaque, err := url.PathUnescape(parts[0][idx+1:])
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedURI, "bad percent-escape in %q", parts[0])
	}
	mp, err := NewHostMountPoint(Scheme(parts[0][:idx]), opaque)
	if err != nil {
		return nil, err
	}

	for _, seg := range parts[1:] {
		idx := strings.IndexByte(seg, ':')
		if idx < 0 {
			return nil, errors.Wrapf(ErrMalformedURI, "nested segment %q has no scheme", seg)
		}
		entryRaw, err := url.PathUnescape(seg[idx+1:])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedURI, "bad percent-escape in %q", seg)
		}
		entry, err := NewEntryName(entryRaw, false)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedURI, err.Error())
		}
		mp, err = NewNestedMountPoint(mp, Scheme(seg[:idx]), entry)
		if err != nil {
			return nil, err
		}
	}
	return mp, nil
}
