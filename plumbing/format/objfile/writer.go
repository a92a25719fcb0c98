package objfile

import (
	"compress/zlib"
	"errors"
	"io"
	"strconv"

	"github.com/gitforge/forge/plumbing"
)

var (
	// ErrOverflow is returned when a Write call would write more bytes than
	// declared in WriteHeader.
	ErrOverflow = errors.New("declared size and offset does not match")
	// ErrNegativeSize is returned by WriteHeader when size is negative.
	ErrNegativeSize = errors.New("negative size not allowed")
)

// Writer encodes loose object files.
type Writer struct {
	raw    io.Writer
	zlib   io.WriteCloser
	hasher plumbing.Hasher
	multi  io.Writer

	closed bool
	pos    int64
	size   int64
}

// NewWriter returns a new Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{raw: w}
}

// WriteHeader writes the object type and size, and must be called exactly
// once before any call to Write.
func (w *Writer) WriteHeader(t plumbing.ObjectType, size int64) error {
	if !t.Valid() {
		return plumbing.ErrInvalidType
	}

	if size < 0 {
		return ErrNegativeSize
	}

	w.size = size
	w.hasher = plumbing.NewHasher(0, t, size)
	w.zlib = zlib.NewWriter(w.raw)
	w.multi = io.MultiWriter(w.zlib, w.hasher)

	header := t.Bytes()
	header = append(header, ' ')
	header = append(header, []byte(strconv.FormatInt(size, 10))...)
	header = append(header, 0)

	_, err := w.zlib.Write(header)
	return err
}

// Write implements io.Writer, writing inflated object content.
func (w *Writer) Write(p []byte) (n int, err error) {
	overflow := (w.pos + int64(len(p))) - w.size
	if overflow > 0 {
		p = p[:int64(len(p))-overflow]
	}

	n, err = w.multi.Write(p)
	w.pos += int64(n)
	if err == nil && overflow > 0 {
		err = ErrOverflow
	}

	return
}

// Hash returns the computed hash of the object.
func (w *Writer) Hash() plumbing.Hash {
	return w.hasher.Sum()
}

// Close flushes and closes the zlib stream.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true
	if w.zlib == nil {
		return nil
	}

	return w.zlib.Close()
}
