// Package vfspath implements the Path & MountPoint model of §4.1: it
// parses and composes hierarchical archive URIs into a tree of
// (scheme, mount point, entry name) triples.
//
// Grounded on the path.Dir/path.Base traversal idiom of
// backend/archive/archive.go's findArchive/subArchive helpers,
// generalized from "one archive suffix match" to a full mount-point
// chain.
package vfspath

// Scheme is the symbolic identifier for a driver, e.g. "file", "zip",
// "tar", "tarxz".
type Scheme string

// Well-known schemes matching the External Interfaces table (§6).
const (
	SchemeFile   Scheme = "file"
	SchemeZip    Scheme = "zip"
	SchemeJar    Scheme = "jar"
	SchemeODF    Scheme = "odf"
	SchemeEXE    Scheme = "exe"
	SchemeTar    Scheme = "tar"
	SchemeTarGz  Scheme = "targz"
	SchemeTarBz2 Scheme = "tarbz2"
	SchemeTarXz  Scheme = "tarxz"
	SchemeTzp    Scheme = "tzp"
)

func (s Scheme) String() string { return string(s) }
