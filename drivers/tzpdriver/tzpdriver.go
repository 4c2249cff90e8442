// Package tzpdriver registers the "tzp" scheme: a RAES-encrypted ZIP,
// i.e. a plain ZIP archive (per zipfamily) wrapped in a project-defined
// envelope of salt, iteration count, AES-GCM ciphertext and a trailing
// HMAC-SHA256 MAC (DESIGN.md Open Question 3 — no original_source/ was
// available to resolve the real RAES byte layout, so this is a
// from-scratch format, not a claim of bit-compatibility with any real
// TrueVFS RAES file).
//
// Grounded on backend/crypt's password-derived-key shape (crypt.go's
// obscured-password flag plus a KDF) generalized from filename
// obfuscation to whole-archive-stream encryption, using
// golang.org/x/crypto/pbkdf2 for key derivation and stdlib
// crypto/aes+crypto/cipher (GCM) for the cipher, the same combination
// DESIGN.md records as replacing backend/crypt's filename-cipher
// dependency (rfjakob/eme) since this corpus has only one
// encryption-shaped component to serve.
package tzpdriver

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/drivers/archivebase"
	"github.com/truevfs/truevfs/drivers/zipfamily"
	"github.com/truevfs/truevfs/iosocket"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
	"golang.org/x/crypto/pbkdf2"
)

const Scheme vfspath.Scheme = "tzp"

const (
	magic         = "TVFS"
	version       = 1
	saltSize      = 32
	headerSize    = 4 + 1 + saltSize + 4 + 23 // magic+version+salt+iterations+reserved = 64
	macSize       = sha256.Size
	defaultIters  = 200_000
	keySize       = 32 // AES-256
	nonceReserved = 12 // GCM standard nonce size, derived from the salt's tail
)

type passphraseKey struct{}

// WithPassphrase attaches the mount passphrase to ctx; every Input and
// Output call on a tzp-mounted tree reads it back via PassphraseFrom.
// Analogous to accountant.WithOwner: a value context carries what a
// JVM thread-local would hold.
func WithPassphrase(ctx context.Context, passphrase string) context.Context {
	return context.WithValue(ctx, passphraseKey{}, passphrase)
}

// PassphraseFrom extracts the passphrase attached by WithPassphrase,
// or "" if none was attached.
func PassphraseFrom(ctx context.Context) string {
	p, _ := ctx.Value(passphraseKey{}).(string)
	return p
}

func deriveKey(passphrase string, salt []byte, iters int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iters, keySize, sha256.New)
}

// decryptedSocket wraps a raw, encrypted InputSocket with a lazily
// decrypting OpenStream, so zipfamily.Driver.NewInputService never
// has to know encryption is involved.
type decryptedSocket struct {
	iosocket.InputSocket
	ctx context.Context
}

func (s decryptedSocket) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	raw, err := s.InputSocket.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	sealed, err := io.ReadAll(raw)
	if err != nil {
		return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "tzp: reading envelope")
	}
	plain, err := decrypt(PassphraseFrom(ctx), sealed)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(plain)), nil
}

func decrypt(passphrase string, sealed []byte) ([]byte, error) {
	if len(sealed) < headerSize+macSize {
		return nil, vfsmodel.NewKindError(vfsmodel.CorruptArchive, "tzp: envelope too short")
	}
	header := sealed[:headerSize]
	if string(header[:4]) != magic {
		return nil, vfsmodel.ErrFalsePositive(vfsmodel.NewKindError(vfsmodel.InvalidURI, "tzp: bad magic"))
	}
	salt := header[5 : 5+saltSize]
	iters := int(binary.BigEndian.Uint32(header[5+saltSize : 5+saltSize+4]))

	body := sealed[headerSize : len(sealed)-macSize]
	gotMAC := sealed[len(sealed)-macSize:]

	key := deriveKey(passphrase, salt, iters)

	mac := hmac.New(sha256.New, key)
	mac.Write(header)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), gotMAC) {
		return nil, vfsmodel.NewKindError(vfsmodel.AuthenticationFailed, "tzp: MAC mismatch, wrong passphrase or corrupt archive")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "tzp: building cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "tzp: building GCM")
	}
	nonce := salt[saltSize-gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, body, header)
	if err != nil {
		return nil, vfsmodel.NewKindError(vfsmodel.BadKey, "tzp: decryption failed, wrong passphrase")
	}
	return plain, nil
}

func encrypt(passphrase string, plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "tzp: generating salt")
	}
	key := deriveKey(passphrase, salt, defaultIters)

	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	header[4] = version
	copy(header[5:5+saltSize], salt)
	binary.BigEndian.PutUint32(header[5+saltSize:5+saltSize+4], uint32(defaultIters))

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "tzp: building cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vfsmodel.Wrap(err, vfsmodel.IoFailure, "tzp: building GCM")
	}
	nonce := salt[saltSize-gcm.NonceSize():]
	body := gcm.Seal(nil, nonce, plain, header)

	mac := hmac.New(sha256.New, key)
	mac.Write(header)
	mac.Write(body)
	sum := mac.Sum(nil)

	sealed := make([]byte, 0, len(header)+len(body)+len(sum))
	sealed = append(sealed, header...)
	sealed = append(sealed, body...)
	sealed = append(sealed, sum...)
	return sealed, nil
}

// encryptedWriter buffers the plain ZIP bytes written to it, sealing
// them into the RAES envelope only on Close — the envelope's MAC
// covers the whole archive, so it cannot be computed incrementally.
type encryptedWriter struct {
	ctx context.Context
	raw io.WriteCloser
	buf bytes.Buffer
}

func (w *encryptedWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *encryptedWriter) Close() error {
	sealed, err := encrypt(PassphraseFrom(w.ctx), w.buf.Bytes())
	if err != nil {
		_ = w.raw.Close()
		return err
	}
	if _, err := w.raw.Write(sealed); err != nil {
		_ = w.raw.Close()
		return vfsmodel.Wrap(err, vfsmodel.IoFailure, "tzp: writing envelope")
	}
	return w.raw.Close()
}

type encryptedSink struct {
	iosocket.OutputSocket
	ctx context.Context
}

func (s encryptedSink) OpenStream(ctx context.Context) (io.WriteCloser, error) {
	raw, err := s.OutputSocket.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	return &encryptedWriter{ctx: ctx, raw: raw}, nil
}

// driver delegates ZIP structure parsing to zipfamily.Driver, wrapping
// the archive's raw socket pair with RAES encryption/decryption first.
type driver struct {
	inner archivedriver.Driver
}

// New constructs the "tzp" driver.
func New() archivedriver.Driver { return &driver{inner: zipfamily.New(Scheme, nil)} }

func (d *driver) Charset() archivedriver.Charset { return d.inner.Charset() }

func (d *driver) Encodable(name string) bool { return d.inner.Encodable(name) }

func (d *driver) Writable() bool { return true }

func (d *driver) NewEntry(name string, typ vfsmodel.EntryType, opts archivedriver.AccessOptions, template *vfsmodel.Entry) *vfsmodel.Entry {
	return d.inner.NewEntry(name, typ, opts, template)
}

func (d *driver) NewInputService(ctx context.Context, mp *vfspath.MountPoint, source iosocket.InputSocket) (archivedriver.InputService, error) {
	return d.inner.NewInputService(ctx, mp, decryptedSocket{InputSocket: source, ctx: ctx})
}

func (d *driver) NewOutputService(ctx context.Context, mp *vfspath.MountPoint, sink iosocket.OutputSocket, input archivedriver.InputService) (archivedriver.OutputService, error) {
	return d.inner.NewOutputService(ctx, mp, encryptedSink{OutputSocket: sink, ctx: ctx}, input)
}

func (d *driver) NewController(mp *vfspath.MountPoint, parent archivedriver.Controller) archivedriver.Controller {
	// Must assemble archivebase around d itself, not d.inner: the
	// target layer calls back into NewInputService/NewOutputService on
	// whichever Driver it was built with, and only d's overrides
	// interpose the RAES envelope around the plain ZIP bytes.
	return archivebase.New(mp, d, parent)
}

func init() {
	archivedriver.Register(archivedriver.Registration{
		Scheme:   Scheme,
		Suffixes: []string{"tzp"},
		Driver:   New(),
	})
}
