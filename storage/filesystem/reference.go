package filesystem

import (
	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/storer"
	"github.com/gitforge/forge/storage/filesystem/dotgit"
)

// ReferenceStorage is a filesystem-backed implementation of
// storer.ReferenceStorer, reading and writing loose refs and
// packed-refs under the repository's .git directory.
type ReferenceStorage struct {
	dir *dotgit.DotGit
}

// SetReference stores the given reference, unconditionally.
func (r *ReferenceStorage) SetReference(ref *plumbing.Reference) error {
	return r.dir.SetRef(ref, nil)
}

// CheckAndSetReference stores ref, only if the current value of the
// reference storer equals old. If old is nil, the current value is not
// checked.
func (r *ReferenceStorage) CheckAndSetReference(ref, old *plumbing.Reference) error {
	return r.dir.SetRef(ref, old)
}

// Reference returns the reference for the given name.
func (r *ReferenceStorage) Reference(n plumbing.ReferenceName) (*plumbing.Reference, error) {
	return r.dir.Ref(n)
}

// IterReferences returns an iterator over all stored references.
func (r *ReferenceStorage) IterReferences() (storer.ReferenceIter, error) {
	refs, err := r.dir.Refs()
	if err != nil {
		return nil, err
	}

	return storer.NewReferenceSliceIter(refs), nil
}

// RemoveReference removes the reference with the given name.
func (r *ReferenceStorage) RemoveReference(n plumbing.ReferenceName) error {
	return r.dir.RemoveRef(n)
}

// CountLooseRefs returns the number of loose references.
func (r *ReferenceStorage) CountLooseRefs() (int, error) {
	return r.dir.CountLooseRefs()
}

// PackRefs packs the loose references into the packed-refs file.
func (r *ReferenceStorage) PackRefs() error {
	return r.dir.PackRefs()
}
