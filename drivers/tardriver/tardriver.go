// Package tardriver registers the "tar" scheme: plain POSIX TAR with
// no compression layer.
package tardriver

import (
	"io"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/tarfamily"
	"github.com/truevfs/truevfs/vfspath"
)

const Scheme vfspath.Scheme = "tar"

type passthroughCodec struct{}

func (passthroughCodec) WrapReader(r io.Reader) (io.Reader, error) { return r, nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (passthroughCodec) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (passthroughCodec) Writable() bool { return true }

// New constructs the "tar" driver.
func New() archivedriver.Driver { return tarfamily.New(Scheme, passthroughCodec{}) }

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme:   Scheme,
		Suffixes: []string{"tar"},
		Driver:   New(),
	})
}
