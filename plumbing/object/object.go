// Package object implements the encoding and decoding of git objects: tags,
// trees, blobs and commits.
package object

import (
	"errors"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/storer"
)

// ErrUnsupportedObject is returned by Decode when the given EncodedObject
// doesn't match the type being decoded into.
var ErrUnsupportedObject = errors.New("unsupported object type")

// Object is implemented by any git object (Commit, Tree, Blob and Tag).
type Object interface {
	ID() plumbing.Hash
	Type() plumbing.ObjectType
	Decode(plumbing.EncodedObject) error
	Encode(plumbing.EncodedObject) error
}

// GetObject gets an object from an object storer and decodes it.
func GetObject(s storer.EncodedObjectStorer, h plumbing.Hash) (Object, error) {
	o, err := s.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeObject(s, o)
}

// DecodeObject decodes an encoded object into an Object, picking the
// concrete type from the EncodedObject's declared type.
func DecodeObject(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (Object, error) {
	switch o.Type() {
	case plumbing.CommitObject:
		return DecodeCommit(s, o)
	case plumbing.TreeObject:
		return DecodeTree(s, o)
	case plumbing.BlobObject:
		return DecodeBlob(o)
	case plumbing.TagObject:
		return DecodeTag(s, o)
	default:
		return nil, plumbing.ErrInvalidType
	}
}

// GetCommit gets a commit from an object storer and decodes it.
func GetCommit(s storer.EncodedObjectStorer, h plumbing.Hash) (*Commit, error) {
	o, err := s.EncodedObject(plumbing.CommitObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeCommit(s, o)
}

// GetTree gets a tree from an object storer and decodes it.
func GetTree(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tree, error) {
	o, err := s.EncodedObject(plumbing.TreeObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeTree(s, o)
}

// GetBlob gets a blob from an object storer and decodes it.
func GetBlob(s storer.EncodedObjectStorer, h plumbing.Hash) (*Blob, error) {
	o, err := s.EncodedObject(plumbing.BlobObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeBlob(o)
}

// GetTag gets a tag from an object storer and decodes it.
func GetTag(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tag, error) {
	o, err := s.EncodedObject(plumbing.TagObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeTag(s, o)
}

// ObjectIter is a generic closable interface for iterating over Objects.
type ObjectIter struct {
	eIter storer.EncodedObjectIter
	s     storer.EncodedObjectStorer
}

// NewObjectIter returns an Object iterator given an EncodedObjectStorer and
// an EncodedObjectIter.
func NewObjectIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *ObjectIter {
	return &ObjectIter{eIter: iter, s: s}
}

// Next returns the next object from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *ObjectIter) Next() (Object, error) {
	obj, err := iter.eIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeObject(iter.s, obj)
}

// ForEach call the cb function for each object contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stop but no error is returned.
func (iter *ObjectIter) ForEach(cb func(Object) error) error {
	return iter.eIter.ForEach(func(obj plumbing.EncodedObject) error {
		o, err := DecodeObject(iter.s, obj)
		if err != nil {
			return err
		}

		return cb(o)
	})
}

// Close releases any resources used by the iterator.
func (iter *ObjectIter) Close() {
	iter.eIter.Close()
}

func checkObjectType(obj plumbing.EncodedObject, expected plumbing.ObjectType) error {
	if obj.Type() != expected {
		return ErrUnsupportedObject
	}

	return nil
}
