// Package tarfamily implements the archivedriver.Driver contract
// shared by every TAR-based scheme (tar, targz, tarbz2, tarxz): the
// four formats differ only in the byte-stream codec wrapped around a
// plain POSIX tar stream, so one Driver implementation parameterized
// by a Codec serves all four, the way rclone's backend/archive
// drivers each wrap a format-specific parser around the same
// base.Fs/base.Object shape.
//
// Grounded on stdlib archive/tar for the structural format and
// backend/press/alg_xz.go for the github.com/ulikunitz/xz
// Reader/Writer call shape (gzip uses
// github.com/klauspost/compress/gzip and bzip2 uses stdlib
// compress/bzip2).
package tarfamily

import (
	"archive/tar"
	"bytes"
	"context"
	"io"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/archivebase"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// Codec wraps/unwraps the compression layer a TAR stream rides on.
// The plain "tar" scheme uses tardriver's unexported no-op
// passthroughCodec.
type Codec interface {
	// WrapReader decorates r with decompression.
	WrapReader(r io.Reader) (io.Reader, error)
	// WrapWriter decorates w with compression. Returning
	// vfsmodel.ReadOnly-kind errors is not expected here; instead a
	// codec that cannot encode sets Writable() false and
	// Driver.NewOutputService rejects the call before ever reaching
	// WrapWriter.
	WrapWriter(w io.Writer) (io.WriteCloser, error)
	// Writable reports whether WrapWriter can actually produce bytes
	// (false for codecs this corpus only has a decoder for).
	Writable() bool
}

// Driver implements archivedriver.Driver for one TAR-family scheme.
type Driver struct {
	scheme vfspath.Scheme
	codec  Codec
}

// New constructs the Driver for scheme, using codec for the
// compression layer.
func New(scheme vfspath.Scheme, codec Codec) *Driver {
	return &Driver{scheme: scheme, codec: codec}
}

func (d *Driver) Charset() archivedriver.Charset { return "UTF-8" }

func (d *Driver) Encodable(name string) bool { return true }

func (d *Driver) Writable() bool { return d.codec.Writable() }

func (d *Driver) NewEntry(name string, typ vfsmodel.EntryType, opts archivedriver.AccessOptions, template *vfsmodel.Entry) *vfsmodel.Entry {
	if template != nil {
		return template
	}
	return vfsmodel.NewEntry(name, typ)
}

func (d *Driver) NewInputService(ctx context.Context, mp *vfspath.MountPoint, source iosocket.InputSocket) (archivedriver.InputService, error) {
	stream, err := source.OpenStream(ctx)
	if err != nil {
		return nil, vfsmodel.ErrFalsePositive(err)
	}
	defer stream.Close()

	decoded, err := d.codec.WrapReader(stream)
	if err != nil {
		return nil, vfsmodel.ErrFalsePositive(err)
	}

	entries := make(map[string][]byte)
	meta := make(map[string]*vfsmodel.Entry)
	var order []string

	tr := tar.NewReader(decoded)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(order) == 0 {
				return nil, vfsmodel.ErrFalsePositive(err)
			}
			return nil, vfsmodel.Wrap(err, vfsmodel.CorruptArchive, "tar: truncated stream")
		}

		name := hdr.Name
		typ := vfsmodel.File
		if hdr.Typeflag == tar.TypeDir {
			typ = vfsmodel.Directory
		}
		e := vfsmodel.NewEntry(name, typ)
		e.Sizes[vfsmodel.SizeData] = hdr.Size
		e.Sizes[vfsmodel.SizeStorage] = hdr.Size
		e.Times[vfsmodel.AccessWrite] = hdr.ModTime

		var buf bytes.Buffer
		if typ == vfsmodel.File {
			if _, err := io.Copy(&buf, tr); err != nil {
				return nil, vfsmodel.Wrap(err, vfsmodel.CorruptArchive, "tar: reading entry %s", name)
			}
		}
		entries[name] = buf.Bytes()
		meta[name] = e
		order = append(order, name)
	}

	return &inputService{entries: entries, meta: meta, order: order}, nil
}

func (d *Driver) NewOutputService(ctx context.Context, mp *vfspath.MountPoint, sink iosocket.OutputSocket, input archivedriver.InputService) (archivedriver.OutputService, error) {
	if !d.codec.Writable() {
		return nil, vfsmodel.NewKindError(vfsmodel.ReadOnly, "tarfamily: %s codec does not support writing", d.scheme)
	}
	w, err := sink.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	compressed, err := d.codec.WrapWriter(w)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return &outputService{raw: w, compressed: compressed, tw: tar.NewWriter(compressed)}, nil
}

func (d *Driver) NewController(mp *vfspath.MountPoint, parent archivedriver.Controller) archivedriver.Controller {
	return archivebase.New(mp, d, parent)
}

type inputService struct {
	entries map[string][]byte
	meta    map[string]*vfsmodel.Entry
	order   []string
}

func (s *inputService) Entries(ctx context.Context) ([]*vfsmodel.Entry, error) {
	out := make([]*vfsmodel.Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.meta[name])
	}
	return out, nil
}

func (s *inputService) Entry(ctx context.Context, name string) (*vfsmodel.Entry, error) {
	return s.meta[name], nil
}

func (s *inputService) NewInputSocket(name string) (iosocket.InputSocket, error) {
	data, ok := s.entries[name]
	if !ok {
		return nil, vfsmodel.NewKindError(vfsmodel.NoSuchEntry, "%s", name)
	}
	return iosocket.NewFuncInputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return s.meta[name], nil },
		func(ctx context.Context) (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	), nil
}

func (s *inputService) Close() error { return nil }

type outputService struct {
	raw        io.WriteCloser
	compressed io.WriteCloser
	tw         *tar.Writer
}

func (s *outputService) NewOutputSocket(entry *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	return iosocket.NewFuncOutputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return entry, nil },
		func(ctx context.Context) (io.WriteCloser, error) {
			return &entryWriter{tw: s.tw, entry: entry}, nil
		},
	), nil
}

func (s *outputService) Close() error {
	if err := s.tw.Close(); err != nil {
		return err
	}
	if err := s.compressed.Close(); err != nil {
		return err
	}
	return s.raw.Close()
}

type entryWriter struct {
	tw    *tar.Writer
	entry *vfsmodel.Entry
	buf   bytes.Buffer
}

func (w *entryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *entryWriter) Close() error {
	typ := byte(tar.TypeReg)
	if w.entry.Type == vfsmodel.Directory {
		typ = tar.TypeDir
	}
	hdr := &tar.Header{
		Name:     w.entry.Name,
		Typeflag: typ,
		Size:     int64(w.buf.Len()),
		Mode:     0o644,
		ModTime:  w.entry.Time(vfsmodel.AccessWrite),
	}
	if w.entry.Type == vfsmodel.Directory {
		hdr.Mode = 0o755
		hdr.Size = 0
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return err
	}
	if hdr.Size == 0 {
		return nil
	}
	_, err := w.tw.Write(w.buf.Bytes())
	return err
}
