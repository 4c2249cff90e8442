// Package vfsmodel holds the Entry and Access-option types of §3/§4.2:
// tagged entry metadata plus the access/sync option bit-fields shared
// by every controller operation.
//
// The option bit-fields are modeled as CacheMode-style enums
// (pflag.Value + json.Unmarshaler), matching
// vfs/vfscommon/cachemode_test.go's view of vfscommon.CacheMode —
// these sets are meant to be settable from a cobra/pflag CLI flag the
// way rclone's --vfs-cache-mode is.
package vfsmodel

import "time"

// EntryType classifies an archive entry.
type EntryType int

const (
	File EntryType = iota
	Directory
	Symlink
	Special
)

func (t EntryType) String() string {
	switch t {
	case File:
		return "FILE"
	case Directory:
		return "DIRECTORY"
	case Symlink:
		return "SYMLINK"
	case Special:
		return "SPECIAL"
	default:
		return "UNKNOWN"
	}
}

// SizeKind distinguishes an entry's uncompressed data size from its
// on-disk storage size.
type SizeKind int

const (
	SizeData SizeKind = iota
	SizeStorage
)

// AccessKind distinguishes an entry's timestamp kinds.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessCreate
)

// UnknownSize is the sentinel for a size that the driver cannot
// report.
const UnknownSize int64 = -1

// AccessType is a read/writable/executable boolean capability check,
// the non-goal-compliant subset of POSIX permission bits (spec.md §1
// non-goals exclude POSIX bits beyond these three booleans).
type AccessType int

const (
	Readable AccessType = iota
	Writable
	Executable
)

// Entry is archive-entry metadata: name, type, per-size-kind numeric
// sizes (unknown = UnknownSize), per-access-kind timestamps, and
// optional children for directories.
type Entry struct {
	Name     string
	Type     EntryType
	Sizes    map[SizeKind]int64
	Times    map[AccessKind]time.Time
	Children []string // nil unless Type == Directory
}

// NewEntry builds an Entry with both size kinds defaulted to unknown.
func NewEntry(name string, t EntryType) *Entry {
	return &Entry{
		Name: name,
		Type: t,
		Sizes: map[SizeKind]int64{
			SizeData:    UnknownSize,
			SizeStorage: UnknownSize,
		},
		Times: make(map[AccessKind]time.Time),
	}
}

// Size returns the entry's size of the given kind, or UnknownSize.
func (e *Entry) Size(kind SizeKind) int64 {
	if e.Sizes == nil {
		return UnknownSize
	}
	if v, ok := e.Sizes[kind]; ok {
		return v
	}
	return UnknownSize
}

// Time returns the entry's timestamp of the given kind, zero if
// unset.
func (e *Entry) Time(kind AccessKind) time.Time {
	if e.Times == nil {
		return time.Time{}
	}
	return e.Times[kind]
}

func (e *Entry) String() string {
	if e == nil {
		return "<nil>"
	}
	return e.Name
}
