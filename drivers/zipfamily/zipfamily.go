// Package zipfamily implements the archivedriver.Driver contract
// shared by every ZIP-based scheme (zip, jar, odf, exe): all four are
// plain ZIP central-directory archives, differing only in an optional
// Constraint that decides whether the scheme is writable (EXE's SFX
// preamble makes it read-only; JAR manifest and ODF mimetype
// conventions are neither validated nor written), so one Driver
// parameterized by a Constraint serves all four the way tarfamily.Driver
// is parameterized by a Codec.
//
// Grounded on stdlib archive/zip for the structural format; the
// decorator-around-a-shared-base shape follows
// backend/archive/base/base.go the same way tarfamily does.
package zipfamily

import (
	"archive/zip"
	"bytes"
	"context"
	"io"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/archivebase"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

// Constraint is the per-scheme difference layered on top of plain ZIP.
// It only decides writability; it does not validate or seed entries
// such as JAR's META-INF/MANIFEST.MF or ODF's mimetype. A nil
// Constraint imposes none, for the plain "zip" scheme.
type Constraint interface {
	// Writable reports whether this scheme's archives may be written
	// back out at all (false for "exe", whose SFX preamble this corpus
	// does not know how to regenerate).
	Writable() bool
}

// Driver implements archivedriver.Driver for one ZIP-family scheme.
type Driver struct {
	scheme     vfspath.Scheme
	constraint Constraint
}

// New constructs the Driver for scheme, honoring constraint (nil for
// no extra constraint beyond plain ZIP).
func New(scheme vfspath.Scheme, constraint Constraint) *Driver {
	return &Driver{scheme: scheme, constraint: constraint}
}

func (d *Driver) Charset() archivedriver.Charset { return "UTF-8" }

func (d *Driver) Encodable(name string) bool { return true }

func (d *Driver) Writable() bool {
	if d.constraint == nil {
		return true
	}
	return d.constraint.Writable()
}

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

	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, vfsmodel.ErrFalsePositive(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, vfsmodel.ErrFalsePositive(err)
	}

	entries := make(map[string][]byte)
	meta := make(map[string]*vfsmodel.Entry)
	var order []string

	for _, f := range zr.File {
		typ := vfsmodel.File
		name := f.Name
		if f.FileInfo().IsDir() {
			typ = vfsmodel.Directory
		}
		e := vfsmodel.NewEntry(name, typ)
		e.Sizes[vfsmodel.SizeData] = int64(f.UncompressedSize64)
		e.Sizes[vfsmodel.SizeStorage] = int64(f.CompressedSize64)
		e.Times[vfsmodel.AccessWrite] = f.Modified

		var data []byte
		if typ == vfsmodel.File {
			rc, err := f.Open()
			if err != nil {
				return nil, vfsmodel.Wrap(err, vfsmodel.CorruptArchive, "zip: opening entry %s", name)
			}
			data, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, vfsmodel.Wrap(err, vfsmodel.CorruptArchive, "zip: reading entry %s", name)
			}
		}
		entries[name] = data
		meta[name] = e
		order = append(order, name)
	}

	return &inputService{entries: entries, meta: meta, order: order}, nil
}

func (d *Driver) NewOutputService(ctx context.Context, mp *vfspath.MountPoint, sink iosocket.OutputSocket, input archivedriver.InputService) (archivedriver.OutputService, error) {
	if !d.Writable() {
		return nil, vfsmodel.NewKindError(vfsmodel.ReadOnly, "zipfamily: %s does not support writing", d.scheme)
	}
	w, err := sink.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	return &outputService{raw: w, zw: zip.NewWriter(w)}, nil
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
	raw io.WriteCloser
	zw  *zip.Writer
}

func (s *outputService) NewOutputSocket(entry *vfsmodel.Entry) (iosocket.OutputSocket, error) {
	return iosocket.NewFuncOutputSocket(
		func(ctx context.Context) (*vfsmodel.Entry, error) { return entry, nil },
		func(ctx context.Context) (io.WriteCloser, error) {
			return &entryWriter{zw: s.zw, entry: entry}, nil
		},
	), nil
}

func (s *outputService) Close() error {
	if err := s.zw.Close(); err != nil {
		return err
	}
	return s.raw.Close()
}

type entryWriter struct {
	zw    *zip.Writer
	entry *vfsmodel.Entry
	buf   bytes.Buffer
}

func (w *entryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *entryWriter) Close() error {
	name := w.entry.Name
	if w.entry.Type == vfsmodel.Directory && name[len(name)-1] != '/' {
		name += "/"
	}
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.entry.Time(vfsmodel.AccessWrite),
	}
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if w.entry.Type == vfsmodel.Directory {
		return nil
	}
	_, err = fw.Write(w.buf.Bytes())
	return err
}
