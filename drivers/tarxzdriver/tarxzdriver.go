// Package tarxzdriver registers the "tarxz" scheme: POSIX TAR over
// xz, using github.com/ulikunitz/xz — present in the teacher's vendor
// tree for backend/press's xz compression algorithm, and the only xz
// implementation in the example pack, but a full reader/writer, so
// unlike tarbz2driver this scheme is read-write.
package tarxzdriver

import (
	"io"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/tarfamily"
	"github.com/truevfs/truevfs/vfspath"
	"github.com/ulikunitz/xz"
)

const Scheme vfspath.Scheme = "tarxz"

type xzCodec struct{}

func (xzCodec) WrapReader(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

func (xzCodec) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	cfg := xz.WriterConfig{}
	return cfg.NewWriter(w)
}

func (xzCodec) Writable() bool { return true }

// New constructs the "tarxz" driver.
func New() archivedriver.Driver { return tarfamily.New(Scheme, xzCodec{}) }

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme:   Scheme,
		Suffixes: []string{"tar.xz"},
		Driver:   New(),
	})
}
