// Package ioutil provides context-aware copy helpers and atomic file writes.
package ioutil

import (
	"context"
	"errors"
	"io"
)

// ErrOverflow is returned when a byte count would overflow uint64.
var ErrOverflow = errors.New("size overflow")

// CopyWithContext copies from src to dst until EOF or error, checking for
// context cancellation between reads. It returns the number of bytes written.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (uint64, error) {
	if len(buf) == 0 {
		buf = make([]byte, 32*1024)
	}
	var written uint64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				if written > ^uint64(0)-uint64(nw) { //nolint:gosec // nw is non-negative by io.Writer contract
					return written, ErrOverflow
				}
				written += uint64(nw) //nolint:gosec // overflow checked above
			}
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if errors.Is(er, io.EOF) {
				return written, nil
			}
			return written, er
		}
	}
}

// CopyN copies exactly n bytes from src to dst with cancellation checks.
// A short src is io.ErrUnexpectedEOF.
func CopyN(ctx context.Context, dst io.Writer, src io.Reader, n int64, buf []byte) error {
	written, err := CopyWithContext(ctx, dst, io.LimitReader(src, n), buf)
	if err != nil {
		return err
	}
	if written != uint64(n) { //nolint:gosec // n is a tar header size, non-negative
		return io.ErrUnexpectedEOF
	}
	return nil
}
