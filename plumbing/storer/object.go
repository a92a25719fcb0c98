package storer

import (
	"errors"
	"io"

	"github.com/gitforge/forge/plumbing"
)

// ErrStop is used to stop a ForEach function in an Iter.
var ErrStop = errors.New("stop iter")

// EncodedObjectStorer generic storage of objects.
type EncodedObjectStorer interface {
	// NewEncodedObject returns a new EncodedObject, the real type of the
	// object can be a custom implementation or the default one,
	// plumbing.MemoryObject.
	NewEncodedObject() plumbing.EncodedObject
	// SetEncodedObject saves an object into the storage, the object should
	// be create with the NewEncodedObject, method, and file if the type is
	// not supported.
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	// EncodedObject gets an object by hash with the given
	// plumbing.ObjectType. Implementors should return
	// (nil, plumbing.ErrObjectNotFound) if an object doesn't exist with
	// both the given hash and object type.
	//
	// Valid plumbing.ObjectType values are CommitObject, BlobObject, TagObject,
	// TreeObject and AnyObject. If plumbing.AnyObject is given, the object must
	// be looked up regardless of its type.
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
	// IterEncodedObjects returns an iterator for all the objects in the
	// storage with the given type. The type may be plumbing.AnyObject to
	// retrieve all objects.
	IterEncodedObjects(plumbing.ObjectType) (EncodedObjectIter, error)
	// HasEncodedObject returns ErrObjNotFound if the object doesn't
	// exist.  If nil, then the object exists.
	HasEncodedObject(plumbing.Hash) error
	// EncodedObjectSize returns the plaintext size of the encoded object.
	EncodedObjectSize(plumbing.Hash) (int64, error)
}

// DeltaObjectStorer is an optional interface for EncodedObjectStorer that
// can return delta encoded objects, this could be used for a more
// efficient network operation.
type DeltaObjectStorer interface {
	DeltaObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
}

// Transaction is an in-progress storage transaction, changes are visible
// only on this transaction until the Commit is called.
type Transaction interface {
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
	Commit() error
	Rollback() error
}

// Transactioner is a optional method for EncodedObjectStorer, it enable
// transaction base write and read of the storage.
type Transactioner interface {
	Begin() Transaction
}

// PackfileWriter is an optional method for ObjectStorer, it enables the
// object storage to write the objects as a pack file.
type PackfileWriter interface {
	// PackfileWriter returns a writer for writing a packfile to the
	// storage. Packfile implements the io.WriteCloser interface.
	PackfileWriter() (io.WriteCloser, error)
}

// RawObjectWriter is an optional method for ObjectStorer, it enables the
// object storage to write objects directly without computing the hash
// itself.
type RawObjectWriter interface {
	// RawObjectWriter returns a writer for writing an object's
	// uncompressed content, of the given type and size.
	RawObjectWriter(typ plumbing.ObjectType, sz int64) (w io.WriteCloser, err error)
}

// LazyObjectWriter is an optional method for ObjectStorer, where header and
// content are written separately.
type LazyObjectWriter interface {
	// LazyWriter returns a io.WriteCloser that is used to write the
	// object's content and a function to write the object's header.
	LazyWriter() (w io.WriteCloser, wh func(typ plumbing.ObjectType, sz int64) error, err error)
}

// AlternatesStorer is an optional interface for EncodedObjectStorer that
// allows adding alternate object directories (i.e. linking to objects
// stored in other repositories).
type AlternatesStorer interface {
	AddAlternate(remote string) error
}

// EncodedObjectIter is a generic closable interface for iterating over
// EncodedObjects.
type EncodedObjectIter interface {
	Next() (plumbing.EncodedObject, error)
	ForEach(func(plumbing.EncodedObject) error) error
	Close()
}

// EncodedObjectLookupIter implements EncodedObjectIter. It lazily looks up
// objects from a storer by their hash.
type EncodedObjectLookupIter struct {
	storer EncodedObjectStorer
	t      plumbing.ObjectType
	series []plumbing.Hash
	pos    int
}

// NewEncodedObjectLookupIter returns an object iterator given an
// EncodedObjectStorer and a slice of object hashes.
func NewEncodedObjectLookupIter(
	storer EncodedObjectStorer, t plumbing.ObjectType, series []plumbing.Hash,
) *EncodedObjectLookupIter {
	return &EncodedObjectLookupIter{storer: storer, t: t, series: series}
}

// Next returns the next object from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *EncodedObjectLookupIter) Next() (plumbing.EncodedObject, error) {
	if iter.pos >= len(iter.series) {
		return nil, io.EOF
	}

	obj, err := iter.storer.EncodedObject(iter.t, iter.series[iter.pos])
	if err == nil {
		iter.pos++
	}

	return obj, err
}

// ForEach call the cb function for each object contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stop but no error is returned.
func (iter *EncodedObjectLookupIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return ForEachIterator(iter, cb)
}

// Close releases any resources used by the iterator.
func (iter *EncodedObjectLookupIter) Close() {
	iter.pos = len(iter.series)
}

// EncodedObjectSliceIter implements EncodedObjectIter over a slice of
// EncodedObjects.
type EncodedObjectSliceIter struct {
	series []plumbing.EncodedObject
}

// NewEncodedObjectSliceIter returns an object iterator for the given slice
// of objects.
func NewEncodedObjectSliceIter(series []plumbing.EncodedObject) *EncodedObjectSliceIter {
	return &EncodedObjectSliceIter{series: series}
}

// Next returns the next object from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *EncodedObjectSliceIter) Next() (plumbing.EncodedObject, error) {
	if len(iter.series) == 0 {
		return nil, io.EOF
	}

	obj := iter.series[0]
	iter.series = iter.series[1:]

	return obj, nil
}

// ForEach call the cb function for each object contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stop but no error is returned.
func (iter *EncodedObjectSliceIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return ForEachIterator(iter, cb)
}

// Close releases any resources used by the iterator.
func (iter *EncodedObjectSliceIter) Close() {
	iter.series = nil
}

// MultiEncodedObjectIter implements EncodedObjectIter, iterating over a
// series of EncodedObjectIter.
type MultiEncodedObjectIter struct {
	iters []EncodedObjectIter
	pos   int
}

// NewMultiEncodedObjectIter returns an object iterator that iterates over
// the given set of iterators, one after another.
func NewMultiEncodedObjectIter(iters []EncodedObjectIter) *MultiEncodedObjectIter {
	return &MultiEncodedObjectIter{iters: iters}
}

// Next returns the next object from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *MultiEncodedObjectIter) Next() (plumbing.EncodedObject, error) {
	for {
		if iter.pos >= len(iter.iters) {
			return nil, io.EOF
		}

		obj, err := iter.iters[iter.pos].Next()
		if err == io.EOF {
			iter.pos++
			continue
		}

		return obj, err
	}
}

// ForEach call the cb function for each object contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stop but no error is returned.
func (iter *MultiEncodedObjectIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return ForEachIterator(iter, cb)
}

// Close releases any resources used by the iterator.
func (iter *MultiEncodedObjectIter) Close() {
	for _, i := range iter.iters {
		i.Close()
	}
}

// ForEachIterator is a helper function to build iterators without dealing
// with the generic implementation of it.
func ForEachIterator(iter interface {
	Next() (plumbing.EncodedObject, error)
}, cb func(plumbing.EncodedObject) error) error {
	for {
		obj, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}
}
