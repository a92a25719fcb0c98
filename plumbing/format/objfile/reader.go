// Package objfile implements encoding and decoding of loose object files,
// as used by a filesystem backed git object database.
package objfile

import (
	"bufio"
	"compress/zlib"
	"errors"
	"io"
	"strconv"

	"github.com/gitforge/forge/plumbing"
)

var (
	// ErrHeader is returned when the loose object header is malformed.
	ErrHeader = errors.New("invalid object header")
)

// Reader reads and decodes loose object files.
type Reader struct {
	multi  io.Reader
	zlib   io.ReadCloser
	hasher plumbing.Hasher

	typ  plumbing.ObjectType
	size int64
}

// NewReader returns a new Reader reading from r.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}

	return &Reader{zlib: zr}, nil
}

// Header reads the type and the size of the object, preparing the reader
// to read the object's content.
func (r *Reader) Header() (t plumbing.ObjectType, size int64, err error) {
	br := bufio.NewReader(r.zlib)

	t, err = readType(br)
	if err != nil {
		return
	}

	size, err = readSize(br)
	if err != nil {
		return
	}

	r.typ = t
	r.size = size
	r.hasher = plumbing.NewHasher(0, t, size)
	r.multi = io.TeeReader(br, r.hasher)

	return
}

func readType(r *bufio.Reader) (plumbing.ObjectType, error) {
	value, err := r.ReadString(' ')
	if err != nil {
		if err == io.EOF {
			err = ErrHeader
		}
		return 0, err
	}

	value = value[:len(value)-1]
	return plumbing.ParseObjectType(value)
}

func readSize(r *bufio.Reader) (int64, error) {
	value, err := r.ReadString(0)
	if err != nil {
		if err == io.EOF {
			err = ErrHeader
		}
		return 0, err
	}

	value = value[:len(value)-1]
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrHeader
	}

	return n, nil
}

// Read implements io.Reader, reading the object's inflated content.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.multi.Read(p)
}

// Hash returns the computed hash of the object, only valid once the
// content has been fully consumed.
func (r *Reader) Hash() plumbing.Hash {
	return r.hasher.Sum()
}

// Close releases the underlying zlib reader.
func (r *Reader) Close() error {
	return r.zlib.Close()
}
