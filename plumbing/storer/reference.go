package storer

import (
	"io"

	"github.com/gitforge/forge/plumbing"
)

// ReferenceStorer is a generic storage of references.
type ReferenceStorer interface {
	SetReference(*plumbing.Reference) error
	// CheckAndSetReference sets the reference `new`, only if the reference
	// storer in the storage is equal to `old`, used to avoid race
	// conditions.
	CheckAndSetReference(new, old *plumbing.Reference) error
	Reference(plumbing.ReferenceName) (*plumbing.Reference, error)
	IterReferences() (ReferenceIter, error)
	RemoveReference(plumbing.ReferenceName) error
	CountLooseRefs() (int, error)
	PackRefs() error
}

// ReferenceIter is a generic closable interface for iterating over
// references.
type ReferenceIter interface {
	Next() (*plumbing.Reference, error)
	ForEach(func(*plumbing.Reference) error) error
	Close()
}

// ReferenceSliceIter implements ReferenceIter over a slice of References.
type ReferenceSliceIter struct {
	series []*plumbing.Reference
	pos    int
}

// NewReferenceSliceIter returns a reference iterator for the given slice of
// Reference objects.
func NewReferenceSliceIter(series []*plumbing.Reference) *ReferenceSliceIter {
	return &ReferenceSliceIter{series: series}
}

// Next returns the next reference from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *ReferenceSliceIter) Next() (*plumbing.Reference, error) {
	if iter.pos >= len(iter.series) {
		return nil, io.EOF
	}

	obj := iter.series[iter.pos]
	iter.pos++

	return obj, nil
}

// ForEach call the cb function for each reference contained on this iter
// until an error happens or the end of the iter is reached. If ErrStop is
// sent the iteration is stop but no error is returned.
func (iter *ReferenceSliceIter) ForEach(cb func(*plumbing.Reference) error) error {
	for {
		r, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(r); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}
}

// Close releases any resources used by the iterator.
func (iter *ReferenceSliceIter) Close() {
	iter.pos = len(iter.series)
}

// ReferenceFilteredIter implements ReferenceIter, filtering the References
// from another ReferenceIter by a given function.
type ReferenceFilteredIter struct {
	f    func(r *plumbing.Reference) bool
	iter ReferenceIter
}

// NewReferenceFilteredIter returns a reference iterator for the given
// reference iterator, that only yields references for which f returns
// true.
func NewReferenceFilteredIter(
	f func(r *plumbing.Reference) bool, iter ReferenceIter,
) *ReferenceFilteredIter {
	return &ReferenceFilteredIter{f, iter}
}

// Next returns the next reference from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *ReferenceFilteredIter) Next() (*plumbing.Reference, error) {
	for {
		r, err := iter.iter.Next()
		if err != nil {
			return nil, err
		}

		if iter.f(r) {
			return r, nil
		}

		continue
	}
}

// ForEach call the cb function for each reference contained on this iter
// until an error happens or the end of the iter is reached. If ErrStop is
// sent the iteration is stop but no error is returned.
func (iter *ReferenceFilteredIter) ForEach(cb func(*plumbing.Reference) error) error {
	for {
		r, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(r); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}
}

// Close releases any resources used by the iterator.
func (iter *ReferenceFilteredIter) Close() {
	iter.iter.Close()
}

// MultiReferenceIter implements ReferenceIter, iterating over a series of
// ReferenceIter.
type MultiReferenceIter struct {
	iters []ReferenceIter
	pos   int
}

// NewMultiReferenceIter returns a reference iterator that iterates over the
// given set of iterators, one after another.
func NewMultiReferenceIter(iters []ReferenceIter) *MultiReferenceIter {
	return &MultiReferenceIter{iters: iters}
}

// Next returns the next reference from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *MultiReferenceIter) Next() (*plumbing.Reference, error) {
	for {
		if iter.pos >= len(iter.iters) {
			return nil, io.EOF
		}

		r, err := iter.iters[iter.pos].Next()
		if err == io.EOF {
			iter.pos++
			continue
		}

		return r, err
	}
}

// ForEach call the cb function for each reference contained on this iter
// until an error happens or the end of the iter is reached. If ErrStop is
// sent the iteration is stop but no error is returned.
func (iter *MultiReferenceIter) ForEach(cb func(*plumbing.Reference) error) error {
	for {
		r, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(r); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}
}

// Close releases any resources used by the iterator.
func (iter *MultiReferenceIter) Close() {
	for _, i := range iter.iters {
		i.Close()
	}
}
