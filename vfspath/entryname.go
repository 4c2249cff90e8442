package vfspath

import (
	"strings"

	"github.com/pkg/errors"
)

// EntryName is a normalized relative path inside a file system. It
// never starts with "/", uses "/" as separator, and "" denotes the
// root entry. After canonicalization it carries no "." or ".."
// segments; directory entries end in "/".
type EntryName string

// RootEntry is the canonical empty entry name denoting a file
// system's root.
const RootEntry EntryName = ""

// NewEntryName canonicalizes name: it resolves "." and ".." segments,
// strips a leading "/", and collapses repeated separators. isDir
// forces a trailing "/" on the result (directories always end in "/"
// per the invariant in spec.md §3).
func NewEntryName(name string, isDir bool) (EntryName, error) {
	trimmed := strings.TrimPrefix(name, "/")
	if trimmed == "" {
		return RootEntry, nil
	}
	segments := strings.Split(trimmed, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "":
			continue
		case ".":
			continue
		case "..":
			if len(out) == 0 {
				return "", errors.Errorf("vfspath: %q escapes the file system root", name)
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	joined := strings.Join(out, "/")
	if joined == "" {
		return RootEntry, nil
	}
	if isDir {
		joined += "/"
	}
	return EntryName(joined), nil
}

// IsRoot reports whether e names the root entry.
func (e EntryName) IsRoot() bool { return e == RootEntry }

// IsDirectory reports whether e's spelling says it names a directory,
// i.e. ends in "/".
func (e EntryName) IsDirectory() bool {
	return e == RootEntry || strings.HasSuffix(string(e), "/")
}

// Base returns the last path segment of e, without any trailing
// separator.
func (e EntryName) Base() string {
	s := strings.TrimSuffix(string(e), "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent returns the entry name of e's containing directory. The
// parent of the root entry is the root entry.
func (e EntryName) Parent() EntryName {
	s := strings.TrimSuffix(string(e), "/")
	i := strings.LastIndexByte(s, '/')
	if i < 0 {
		return RootEntry
	}
	return EntryName(s[:i+1])
}

// Resolve appends rel underneath e, treating e as a directory
// regardless of its own trailing separator.
func (e EntryName) Resolve(rel EntryName) (EntryName, error) {
	base := strings.TrimSuffix(string(e), "/")
	joined := rel.String()
	if base != "" {
		joined = base + "/" + joined
	}
	return NewEntryName(joined, rel.IsDirectory())
}

func (e EntryName) String() string { return string(e) }
