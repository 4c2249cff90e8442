package vfspath

// Path is (MountPoint, EntryName): it uniquely identifies an
// addressable entity anywhere in the federated tree.
type Path struct {
	Mount *MountPoint
	Entry EntryName
}

// NewPath builds a Path from a mount point and an entry name scoped
// to it.
func NewPath(mount *MountPoint, entry EntryName) Path {
	return Path{Mount: mount, Entry: entry}
}

// String renders "mountpoint + entry".
func (p Path) String() string {
	return p.Mount.String() + p.Entry.String()
}

// Decompose produces the (MountPoint, EntryName) chain from outermost
// (the host) to p itself. For a path "a.zip/b.tar/c.txt" resolved
// against mount points (host, a.zip, a.zip/b.tar) this returns one
// entry per mount point in the chain, with the final element carrying
// p.Entry as the entry name inside the innermost file system.
func Decompose(p Path) []Path {
	chain := p.Mount.Chain()
	out := make([]Path, 0, len(chain))
	for i, mp := range chain {
		if i == len(chain)-1 {
			out = append(out, Path{Mount: mp, Entry: p.Entry})
			continue
		}
		// An intermediate mount point's own addressable entry, inside
		// its parent, is chain[i+1].Entry (the archive file name).
		out = append(out, Path{Mount: mp, Entry: chain[i+1].Entry})
	}
	return out
}

// Resolve performs standard path resolution of relative against
// parent's current directory, then re-parses the result — matching
// resolve(parent, relative) of §4.1.
func Resolve(parent *MountPoint, relative Path) (Path, error) {
	if relative.Mount != nil && !relative.Mount.IsHost() {
		// Already an absolute path within its own mount point chain.
		return relative, nil
	}
	entry, err := NewEntryName(relative.Entry.String(), relative.Entry.IsDirectory())
	if err != nil {
		return Path{}, err
	}
	return Path{Mount: parent, Entry: entry}, nil
}
