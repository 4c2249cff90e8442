// Package iosocket implements the abstract I/O socket protocol of
// §4.5: a lazy factory for a single I/O resource, optionally bound to
// a peer socket so a copy pipeline can size or align output before a
// single byte moves.
//
// Grounded on accounting.go's Account (an io.ReadCloser wrapper that
// counts bytes as they're read — the same "decorate a stream, don't
// pre-allocate" idiom) and the fs.OpenOption/fs.Object.Open factory
// pattern visible in backend/archive/base/base.go's Object.Open.
package iosocket

import (
	"context"
	"io"

	"github.com/truevfs/truevfs/vfsmodel"
)

// Socket is the common peer-binding surface of InputSocket and
// OutputSocket.
type Socket interface {
	// LocalTarget returns this socket's own entry, possibly performing
	// mounting as a side effect (§4.5).
	LocalTarget(ctx context.Context) (*vfsmodel.Entry, error)
	// PeerTarget returns the bound peer socket's local target, or nil
	// if unbound.
	PeerTarget(ctx context.Context) (*vfsmodel.Entry, error)
	// Bind inherits other's peer without mutating other.
	Bind(other Socket)
	peer() Socket
	setPeer(Socket)
}

// base implements the peer bookkeeping shared by every concrete
// socket; concrete sockets embed it.
type base struct {
	p Socket
}

func (b *base) peer() Socket     { return b.p }
func (b *base) setPeer(s Socket) { b.p = s }

// Bind copies other's current peer onto the receiver without
// mutating other, per §4.5.
func (b *base) Bind(other Socket) {
	b.p = other.peer()
}

// Connect pairs a and b symmetrically, clearing any prior pairing on
// both sides, per §4.5's connect(other) operation.
func Connect(a, b Socket) {
	a.setPeer(b)
	b.setPeer(a)
}

// InputSocket is a lazy factory for a single input stream.
type InputSocket interface {
	Socket
	OpenStream(ctx context.Context) (io.ReadCloser, error)
}

// OutputSocket is a lazy factory for a single output stream.
type OutputSocket interface {
	Socket
	OpenStream(ctx context.Context) (io.WriteCloser, error)
}

// peerTarget is the shared PeerTarget implementation: if bound to a
// peer, return the peer's own local target.
func peerTarget(ctx context.Context, s Socket) (*vfsmodel.Entry, error) {
	p := s.peer()
	if p == nil {
		return nil, nil
	}
	return p.LocalTarget(ctx)
}
