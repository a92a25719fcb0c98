package git

import (
	"errors"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/object"

	"github.com/go-git/go-billy/v5"
)

// ErrWorktreeMaterializationNotSupported is returned by every Worktree
// operation that would need to write tracked files to disk or run a merge.
// This package only ever resolves objects and references; it never
// materializes a tree or reconciles divergent history.
var ErrWorktreeMaterializationNotSupported = errors.New("worktree materialization not supported")

// CheckoutOptions describes a checkout request. Present so callers compile
// against the same shape as upstream go-git, Checkout itself always returns
// ErrWorktreeMaterializationNotSupported.
type CheckoutOptions struct {
	Hash   plumbing.Hash
	Branch plumbing.ReferenceName
	Create bool
	Force  bool
	Keep   bool
}

// CommitOptions describes a commit request. Present so callers compile
// against the same shape as upstream go-git, Commit itself always returns
// ErrWorktreeMaterializationNotSupported.
type CommitOptions struct {
	Author            *object.Signature
	Committer         *object.Signature
	All               bool
	AllowEmptyCommits bool
}

// ResetMode defines the strategy used when resetting the worktree, mirroring
// the modes `git reset` supports. Present so callers compile against the
// same shape as upstream go-git; Reset itself always returns
// ErrWorktreeMaterializationNotSupported regardless of Mode.
type ResetMode int8

const (
	MixedReset ResetMode = iota
	HardReset
	MergeReset
	SoftReset
)

// ResetOptions describes a reset request. Present so callers compile against
// the same shape as upstream go-git, Reset itself always returns
// ErrWorktreeMaterializationNotSupported.
type ResetOptions struct {
	Commit plumbing.Hash
	Mode   ResetMode
}

// Status is a placeholder for the staging-area/filesystem diff that a real
// working tree scan would produce.
type Status map[string]struct{}

// IsClean reports whether the status has no entries.
func (s Status) IsClean() bool {
	return len(s) == 0
}

// Worktree represents a git working tree, the files checked out from a
// Repository's objects. This implementation never materializes files: every
// mutating operation (Checkout, Add, Commit) returns
// ErrWorktreeMaterializationNotSupported, there is no merge engine. Read-only
// repository state still lives on Repository itself (Head, Reference,
// Objects, ...); Worktree only exposes the Filesystem it would write into.
type Worktree struct {
	r *Repository

	// Filesystem is the working tree's root filesystem.
	Filesystem billy.Filesystem
}

// Checkout always fails: there is no working tree materialization.
func (w *Worktree) Checkout(o *CheckoutOptions) error {
	return ErrWorktreeMaterializationNotSupported
}

// Add always fails: there is no working tree materialization.
func (w *Worktree) Add(path string) (plumbing.Hash, error) {
	return plumbing.ZeroHash, ErrWorktreeMaterializationNotSupported
}

// Commit always fails: there is no working tree materialization or merge
// engine to build a commit from staged changes.
func (w *Worktree) Commit(msg string, o *CommitOptions) (plumbing.Hash, error) {
	return plumbing.ZeroHash, ErrWorktreeMaterializationNotSupported
}

// Reset always fails: there is no working tree materialization to move the
// index and tracked files to match Commit.
func (w *Worktree) Reset(o *ResetOptions) error {
	return ErrWorktreeMaterializationNotSupported
}

// Status always fails: there is no filesystem scan to compare against the
// index.
func (w *Worktree) Status() (Status, error) {
	return nil, ErrWorktreeMaterializationNotSupported
}
