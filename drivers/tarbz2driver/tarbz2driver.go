// Package tarbz2driver registers the "tarbz2" scheme: POSIX TAR over
// bzip2. Read-only: stdlib's compress/bzip2 is decode-only and no
// bzip2 encoder appears anywhere in the example pack's dependency
// set, so WrapWriter is never reachable — Driver.Writable reports
// false and tarfamily.Driver.NewOutputService rejects the call with
// vfsmodel.ReadOnly before ever calling it, a legitimate occupant of
// that error kind (§4.2).
package tarbz2driver

import (
	"compress/bzip2"
	"io"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/tarfamily"
	"github.com/truevfs/truevfs/vfspath"
)

const Scheme vfspath.Scheme = "tarbz2"

type bzip2Codec struct{}

func (bzip2Codec) WrapReader(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r), nil
}

func (bzip2Codec) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	panic("tarbz2driver: WrapWriter unreachable, Writable() is false")
}

func (bzip2Codec) Writable() bool { return false }

// New constructs the "tarbz2" driver.
func New() archivedriver.Driver { return tarfamily.New(Scheme, bzip2Codec{}) }

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme:   Scheme,
		Suffixes: []string{"tbz", "tb2", "tar.bz2"},
		Driver:   New(),
	})
}
