package plumbing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	refPrefix        = "refs/"
	refHeadPrefix    = refPrefix + "heads/"
	refTagPrefix     = refPrefix + "tags/"
	refRemotePrefix  = refPrefix + "remotes/"
	refNotePrefix    = refPrefix + "notes/"
	symrefPrefix     = "ref: "
)

// HEAD is the name of the reference to the current checked out branch.
var HEAD ReferenceName = "HEAD"

// Master is the name of the default branch used historically by git.
var Master ReferenceName = NewBranchReferenceName("master")

// ErrInvalidReferenceName is returned when a reference name is invalid.
var ErrInvalidReferenceName = errors.New("invalid reference name")

// ErrReferenceNotFound is returned when a reference is not found.
var ErrReferenceNotFound = errors.New("reference not found")

// ReferenceType defines the type of a reference.
type ReferenceType int8

const (
	InvalidReference  ReferenceType = 0
	HashReference     ReferenceType = 1
	SymbolicReference ReferenceType = 2
)

func (r ReferenceType) String() string {
	switch r {
	case HashReference:
		return "hash-reference"
	case SymbolicReference:
		return "symbolic-reference"
	default:
		return "invalid-reference"
	}
}

// ReferenceName is a reference name, e.g. "refs/heads/master".
type ReferenceName string

// NewBranchReferenceName returns a reference name for the given branch name.
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewNoteReferenceName returns a reference name for the given note name.
func NewNoteReferenceName(name string) ReferenceName {
	return ReferenceName(refNotePrefix + name)
}

// NewRemoteReferenceName returns a reference name for the given remote and
// branch name.
func NewRemoteReferenceName(remote, name string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/" + name)
}

// NewRemoteHEADReferenceName returns the reference name for the HEAD of the
// given remote.
func NewRemoteHEADReferenceName(remote string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/HEAD")
}

// NewTagReferenceName returns a reference name for the given tag name.
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

// String returns the reference name as a string.
func (r ReferenceName) String() string {
	return string(r)
}

// Short returns the short representation of a reference name, stripping the
// well known prefixes "refs/heads/", "refs/tags/", "refs/remotes/" and
// "refs/notes/".
func (r ReferenceName) Short() string {
	s := r.String()
	res := s
	for _, prefix := range []string{
		refHeadPrefix,
		refTagPrefix,
		refRemotePrefix,
		refNotePrefix,
	} {
		if !strings.HasPrefix(s, prefix) {
			continue
		}

		res = s[len(prefix):]
		break
	}

	return res
}

// IsBranch returns true if the reference name is a branch.
func (r ReferenceName) IsBranch() bool {
	return strings.HasPrefix(string(r), refHeadPrefix)
}

// IsNote returns true if the reference name is a note.
func (r ReferenceName) IsNote() bool {
	return strings.HasPrefix(string(r), refNotePrefix)
}

// IsRemote returns true if the reference name is a remote.
func (r ReferenceName) IsRemote() bool {
	return strings.HasPrefix(string(r), refRemotePrefix)
}

// IsTag returns true if the reference name is a tag.
func (r ReferenceName) IsTag() bool {
	return strings.HasPrefix(string(r), refTagPrefix)
}

// validateRefNameComponent applies the rules enforced by
// git-check-ref-format(1) to a single "/"-separated component of a
// reference name. last and isTagOrBranch are used to apply the extra
// restriction on leading dashes that git only enforces on the final
// component of a branch or tag name.
func validateRefNameComponent(comp string, last, isTagOrBranch bool) bool {
	if comp == "" {
		return false
	}
	if comp == "." || comp == ".." {
		return false
	}
	if strings.HasPrefix(comp, ".") || strings.HasSuffix(comp, ".") {
		return false
	}
	if strings.HasSuffix(comp, ".lock") {
		return false
	}
	if strings.Contains(comp, "..") {
		return false
	}
	if comp == "@" {
		return false
	}
	if strings.Contains(comp, "@{") {
		return false
	}
	if last && isTagOrBranch && strings.HasPrefix(comp, "-") {
		return false
	}

	for _, r := range comp {
		if r < 0x20 || r == 0x7f {
			return false
		}
		switch r {
		case ' ', '~', '^', ':', '?', '*', '[', '\\':
			return false
		}
	}

	return true
}

// Validate checks whether the reference name conforms to the rules
// described by git-check-ref-format(1).
func (r ReferenceName) Validate() error {
	s := string(r)

	if s == string(HEAD) {
		return nil
	}

	if !strings.HasPrefix(s, refPrefix) || strings.HasSuffix(s, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}

	parts := strings.Split(s, "/")
	isTagOrBranch := len(parts) >= 3 && (parts[1] == "heads" || parts[1] == "tags")

	for i, comp := range parts {
		if !validateRefNameComponent(comp, i == len(parts)-1, isTagOrBranch) {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
	}

	return nil
}

// Reference is a representation of git references.
type Reference struct {
	t      ReferenceType
	n      ReferenceName
	h      Hash
	target ReferenceName
}

// NewReferenceFromStrings creates a Reference from a name and target string,
// as they would be found in a packed-refs or loose ref file.
func NewReferenceFromStrings(name, target string) *Reference {
	n := ReferenceName(name)

	if strings.HasPrefix(target, symrefPrefix) {
		target := ReferenceName(target[len(symrefPrefix):])
		return NewSymbolicReference(n, target)
	}

	return NewHashReference(n, NewHash(target))
}

// NewSymbolicReference creates a new SymbolicReference reference.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{
		t:      SymbolicReference,
		n:      n,
		target: target,
	}
}

// NewHashReference creates a new HashReference reference.
func NewHashReference(n ReferenceName, h Hash) *Reference {
	return &Reference{
		t: HashReference,
		n: n,
		h: h,
	}
}

// Type returns the type of the reference.
func (r *Reference) Type() ReferenceType {
	return r.t
}

// Name returns the name of the reference.
func (r *Reference) Name() ReferenceName {
	return r.n
}

// Hash returns the hash of a hash reference.
func (r *Reference) Hash() Hash {
	return r.h
}

// Target returns the target of a symbolic reference.
func (r *Reference) Target() ReferenceName {
	return r.target
}

// String dumps the reference in the same format as `git show-ref`.
func (r *Reference) String() string {
	switch r.Type() {
	case HashReference:
		return fmt.Sprintf("%s %s", r.Hash().String(), r.Name())
	case SymbolicReference:
		return fmt.Sprintf("%s%s %s", symrefPrefix, r.Target(), r.Name())
	default:
		return strconv.Quote("malformed reference")
	}
}

// Strings returns the name and target/hash pair as used in packed-refs.
func (r *Reference) Strings() [2]string {
	var o [2]string
	o[0] = r.Name().String()

	if r.Type() == HashReference {
		o[1] = r.Hash().String()
	} else {
		o[1] = symrefPrefix + r.Target().String()
	}

	return o
}
