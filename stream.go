package relay

import (
	"context"
	"io"
)

// chunkSize is the size of the buffer used when streaming a file out of a
// Storer.
const chunkSize = 32 * 1024

// contextReader stops reading as soon as its context is done, so a copy
// loop stops at the next chunk once the client has gone away.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// capReader returns ErrTooLarge once more than left bytes have been read
// from r.
type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left < int64(len(p)) {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// aborter is implemented by upload writers that can discard everything
// written to them instead of committing it.
type aborter interface {
	CloseWithError(err error) error
}

// abort closes w after a failed copy, discarding what was written if w
// supports that.
func abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(aborter); ok {
		return a.CloseWithError(cause)
	}
	return w.Close()
}
