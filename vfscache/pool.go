// Package vfscache implements the per-entry read/write cache layer of
// §4.6: at most one input buffer and one output buffer per entry
// name, read-through on first read, write-back flushed in directory
// order on sync.
//
// Grounded on backend/cache.Fs's warm/cold chunk logic (InfoAge,
// CacheTs) and its persisted chunk store (AddChunk, backed by a DB per
// storage_persistent.go's import list) — adapted here into an
// in-memory TTL buffer pool (github.com/patrickmn/go-cache, the same
// library backend/cache's info-age bookkeeping calls for) plus a
// go.etcd.io/bbolt-backed dirty-entry index so a crash between
// "stream closed" and "sync flushed" is diagnosable instead of
// silently losing track of what still needs flushing.
package vfscache

import (
	"bytes"
	"io"
	"os"
)

// Pool allocates the backing storage for a cache buffer: an in-memory
// byte slice below a size threshold, a temp file above it — the
// "byte array, temp file, or mapped-file provider" choice §4.6
// delegates to an IoPool configured per process.
type Pool interface {
	Alloc(sizeHint int64) (Buffer, error)
}

// Buffer is a pool-backed read/write/seek handle for one cache entry's
// bytes.
type Buffer interface {
	io.ReadWriteCloser
	io.Seeker
	// Truncate resets the buffer to empty, ready for a fresh write.
	Truncate() error
	// Len reports the number of bytes currently written.
	Len() int64
	// Bytes returns the full buffer contents; every pool's buffers
	// implement it (file-backed buffers read the whole file).
	Bytes() ([]byte, error)
}

// MemPool allocates buffers backed by a growable in-memory byte
// buffer. Appropriate for small archive entries (the common case for
// metadata-heavy archives like JAR/ODF).
type MemPool struct{}

func (MemPool) Alloc(sizeHint int64) (Buffer, error) {
	buf := make([]byte, 0, sizeHint)
	return &memBuffer{buf: bytes.NewBuffer(buf)}, nil
}

type memBuffer struct {
	buf *bytes.Buffer
	pos int64
}

func (b *memBuffer) Read(p []byte) (int, error) {
	n := copy(p, b.buf.Bytes()[b.pos:])
	b.pos += int64(n)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (b *memBuffer) Write(p []byte) (int, error) {
	n, err := b.buf.Write(p)
	return n, err
}

func (b *memBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(b.buf.Len()) + offset
	}
	b.pos = abs
	return abs, nil
}

func (b *memBuffer) Close() error { return nil }

func (b *memBuffer) Truncate() error {
	b.buf.Reset()
	b.pos = 0
	return nil
}

func (b *memBuffer) Len() int64 { return int64(b.buf.Len()) }

func (b *memBuffer) Bytes() ([]byte, error) { return b.buf.Bytes(), nil }

// FilePool allocates buffers backed by a temp file in dir, for entries
// above the in-memory threshold.
type FilePool struct {
	Dir string
}

func (p FilePool) Alloc(sizeHint int64) (Buffer, error) {
	f, err := os.CreateTemp(p.Dir, "truevfs-cache-*")
	if err != nil {
		return nil, err
	}
	return &fileBuffer{f: f}, nil
}

type fileBuffer struct {
	f    *os.File
	size int64
}

func (b *fileBuffer) Read(p []byte) (int, error) { return b.f.Read(p) }

func (b *fileBuffer) Write(p []byte) (int, error) {
	n, err := b.f.Write(p)
	b.size += int64(n)
	return n, err
}

func (b *fileBuffer) Seek(offset int64, whence int) (int64, error) {
	return b.f.Seek(offset, whence)
}

func (b *fileBuffer) Close() error {
	name := b.f.Name()
	err := b.f.Close()
	os.Remove(name)
	return err
}

func (b *fileBuffer) Truncate() error {
	if err := b.f.Truncate(0); err != nil {
		return err
	}
	_, err := b.f.Seek(0, io.SeekStart)
	b.size = 0
	return err
}

func (b *fileBuffer) Len() int64 { return b.size }

func (b *fileBuffer) Bytes() ([]byte, error) {
	if _, err := b.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(b.f)
}

// ThresholdPool picks MemPool below Threshold bytes and Overflow (a
// FilePool) at or above it; sizeHint < 0 (unknown size) always uses
// Overflow, matching "don't pre-allocate unbounded memory for an
// unsized stream".
type ThresholdPool struct {
	Threshold int64
	Overflow  Pool
}

func (p ThresholdPool) Alloc(sizeHint int64) (Buffer, error) {
	if sizeHint >= 0 && sizeHint < p.Threshold {
		return MemPool{}.Alloc(sizeHint)
	}
	return p.Overflow.Alloc(sizeHint)
}
