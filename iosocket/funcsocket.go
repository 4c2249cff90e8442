package iosocket

import (
	"context"
	"io"

	"github.com/truevfs/truevfs/vfsmodel"
)

// FuncInputSocket adapts a plain local-target/open-stream pair of
// functions into an InputSocket, the way
// backend/archive/base/base.go's Object.Open hands back a bare
// io.ReadCloser factory without committing to a concrete reader
// implementation.
type FuncInputSocket struct {
	base
	TargetFn func(ctx context.Context) (*vfsmodel.Entry, error)
	OpenFn   func(ctx context.Context) (io.ReadCloser, error)
}

func NewFuncInputSocket(target func(ctx context.Context) (*vfsmodel.Entry, error), open func(ctx context.Context) (io.ReadCloser, error)) *FuncInputSocket {
	return &FuncInputSocket{TargetFn: target, OpenFn: open}
}

func (s *FuncInputSocket) LocalTarget(ctx context.Context) (*vfsmodel.Entry, error) {
	return s.TargetFn(ctx)
}

func (s *FuncInputSocket) PeerTarget(ctx context.Context) (*vfsmodel.Entry, error) {
	return peerTarget(ctx, s)
}

func (s *FuncInputSocket) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	return s.OpenFn(ctx)
}

// FuncOutputSocket is the output-direction analogue of
// FuncInputSocket.
type FuncOutputSocket struct {
	base
	TargetFn func(ctx context.Context) (*vfsmodel.Entry, error)
	OpenFn   func(ctx context.Context) (io.WriteCloser, error)
}

func NewFuncOutputSocket(target func(ctx context.Context) (*vfsmodel.Entry, error), open func(ctx context.Context) (io.WriteCloser, error)) *FuncOutputSocket {
	return &FuncOutputSocket{TargetFn: target, OpenFn: open}
}

func (s *FuncOutputSocket) LocalTarget(ctx context.Context) (*vfsmodel.Entry, error) {
	return s.TargetFn(ctx)
}

func (s *FuncOutputSocket) PeerTarget(ctx context.Context) (*vfsmodel.Entry, error) {
	return peerTarget(ctx, s)
}

func (s *FuncOutputSocket) OpenStream(ctx context.Context) (io.WriteCloser, error) {
	return s.OpenFn(ctx)
}
