package plumbing

import (
	"bytes"
	"io"
)

// MemoryObject is an EncodedObject implementation backed by an in-memory
// byte slice. It is used to build git objects before they are written to
// a ContentAddressable storage.
type MemoryObject struct {
	t    ObjectType
	h    Hash
	sz   int64
	cont []byte
}

// Hash returns the hash of the object, computed the last time its content
// was written. It is the zero Hash if nothing has been written yet.
func (o *MemoryObject) Hash() Hash {
	return o.h
}

// Type returns the object type.
func (o *MemoryObject) Type() ObjectType {
	return o.t
}

// SetType sets the object type.
func (o *MemoryObject) SetType(t ObjectType) {
	o.t = t
}

// Size returns the declared object size.
func (o *MemoryObject) Size() int64 {
	return o.sz
}

// SetSize sets the declared object size, used when hashing the content
// written through Write.
func (o *MemoryObject) SetSize(s int64) {
	o.sz = s
}

// Reader returns a ReadCloser used to read the object's content. When the
// content is bigger than a memory page the returned reader also
// implements io.ReadSeeker.
func (o *MemoryObject) Reader() (io.ReadCloser, error) {
	return &memoryObjectReader{bytes.NewReader(o.cont)}, nil
}

// Writer returns a WriteCloser used to write the object's content. Every
// byte written through it updates the object's hash.
func (o *MemoryObject) Writer() (io.WriteCloser, error) {
	return &memoryObjectWriter{o}, nil
}

// Write appends p to the object's content and recomputes its hash using
// the currently set type and size.
func (o *MemoryObject) Write(p []byte) (int, error) {
	o.cont = append(o.cont, p...)
	o.computeHash()
	return len(p), nil
}

func (o *MemoryObject) computeHash() {
	hasher := NewHasher(0, o.t, o.sz)
	_, _ = hasher.Write(o.cont)
	o.h = hasher.Sum()
}

type memoryObjectReader struct {
	*bytes.Reader
}

func (r *memoryObjectReader) Close() error {
	return nil
}

type memoryObjectWriter struct {
	o *MemoryObject
}

func (w *memoryObjectWriter) Write(p []byte) (int, error) {
	return w.o.Write(p)
}

func (w *memoryObjectWriter) Close() error {
	return nil
}
