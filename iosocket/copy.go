package iosocket

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Copy implements the copy algorithm of §4.5:
//
//	out.connect(in); openStream pair; stream bytes
//
// Connecting before opening lets an output driver size or align its
// output using the input's metadata (via PeerTarget) before a single
// byte moves.
func Copy(ctx context.Context, in InputSocket, out OutputSocket) (written int64, err error) {
	Connect(in, out)

	r, err := in.OpenStream(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "iosocket: open input stream")
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "iosocket: close input stream")
		}
	}()

	w, err := out.OpenStream(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "iosocket: open output stream")
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "iosocket: close output stream")
		}
	}()

	written, err = io.Copy(w, r)
	if err != nil {
		return written, errors.Wrap(err, "iosocket: copy")
	}
	return written, nil
}
