package git

import (
	"errors"
	"time"

	"github.com/gitforge/forge/config"
	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/protocol/packp/sideband"
	"github.com/gitforge/forge/plumbing/transport"
)

// DefaultRemoteName is the name used for a remote when none is given,
// just like the git command.
const DefaultRemoteName = "origin"

// ErrMissingURL is returned when the URL field is required but empty.
var ErrMissingURL = errors.New("URL field is required")

// CloneOptions describes how a repository is cloned.
type CloneOptions struct {
	// RemoteName is the name of the remote to create for the cloned
	// repository, default is "origin".
	RemoteName string
	// URL is the repository location to clone from.
	URL string
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// ReferenceName to be checked out after the clone, default is HEAD.
	ReferenceName plumbing.ReferenceName
	// SingleBranch limits fetching to the specified ReferenceName.
	SingleBranch bool
	// Depth limits fetching to the specified number of commits.
	Depth int
	// Progress is where the human readable information sent by the
	// server is stored.
	Progress sideband.Progress
	// Bare creates a repository without a worktree, only meaningful to
	// PlainClone.
	Bare bool
	// Shared configures the new repository's object store to reference
	// the source repository's objects via an alternates file, instead of
	// copying them, only meaningful to PlainClone with a local URL.
	Shared bool
}

// Validate validates the fields and sets the default values.
func (o *CloneOptions) Validate() error {
	if o.URL == "" {
		return ErrMissingURL
	}

	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	if o.ReferenceName == "" {
		o.ReferenceName = plumbing.HEAD
	}

	return nil
}

// PullOptions describes how a pull should be performed.
type PullOptions struct {
	// RemoteName is the name of the remote to be pulled, default is
	// "origin".
	RemoteName string
	// ReferenceName is the remote branch to pull, defaults to HEAD.
	ReferenceName plumbing.ReferenceName
	// SingleBranch limits fetching to the specified ReferenceName.
	SingleBranch bool
	// Depth limits fetching to the specified number of commits.
	Depth int
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// Progress is where the human readable information sent by the
	// server is stored.
	Progress sideband.Progress
	// Force allows the pull to update a local branch even when the
	// remote history has diverged.
	Force bool
}

// Validate validates the fields and sets the default values.
func (o *PullOptions) Validate() error {
	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	if o.ReferenceName == "" {
		o.ReferenceName = plumbing.HEAD
	}

	return nil
}

// FetchOptions describes how a fetch should be performed.
type FetchOptions struct {
	// RemoteName is the name of the remote to fetch from, default is
	// "origin".
	RemoteName string
	// RefSpecs contains the refspecs to fetch. If empty, the remote's
	// configured fetch refspecs are used.
	RefSpecs []config.RefSpec
	// Depth limits fetching to the specified number of commits, 0 means
	// no limit.
	Depth int
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// Progress is where the human readable information sent by the
	// server is stored.
	Progress sideband.Progress
	// Tags controls how tags are fetched from the remote.
	Tags plumbing.TagMode
	// Force allows fetches that are not fast-forwards to update local
	// references.
	Force bool
	// InsecureSkipTLS skips TLS certificate verification when connecting
	// to the remote repository.
	InsecureSkipTLS bool
	// CABundle is a PEM encoded certificate authority bundle used to
	// verify the remote repository's certificate.
	CABundle []byte
	// ProxyOptions configures the proxy used to connect to the remote.
	ProxyOptions transport.ProxyOptions
	// Prune removes remote-tracking references that no longer exist on
	// the remote.
	Prune bool
	// RemoteURL overrides the remote's configured URL.
	RemoteURL string
}

// Validate validates the fields and sets the default values.
func (o *FetchOptions) Validate() error {
	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	if o.Tags == plumbing.InvalidTagMode {
		o.Tags = plumbing.TagFollowing
	}

	return o.ProxyOptions.Validate()
}

// ForceWithLease holds the parameters for a force-with-lease push, which
// rejects an update unless the current value of the remote ref matches
// an expected value.
type ForceWithLease struct {
	// RefName is the reference to protect. If empty, every reference
	// updated by the push uses the same lease check.
	RefName plumbing.ReferenceName
	// Hash is the expected current value of RefName on the remote. If
	// zero, the remote-tracking reference's value is used instead.
	Hash plumbing.Hash
}

// PushOptions describes how a push should be performed.
type PushOptions struct {
	// RemoteName is the name of the remote to push to, default is
	// "origin".
	RemoteName string
	// RemoteURL overrides the remote's configured URL.
	RemoteURL string
	// RefSpecs contains the refspecs to push. If empty, the remote's
	// configured push refspecs are used.
	RefSpecs []config.RefSpec
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// Progress is where the human readable information sent by the
	// server is stored.
	Progress sideband.Progress
	// Prune removes remote references that don't exist locally.
	Prune bool
	// Force allows the push to update a remote ref that is not a
	// fast-forward.
	Force bool
	// ForceWithLease allows a force push only if the remote ref is still
	// at the expected value. A nil value disables the lease check.
	ForceWithLease *ForceWithLease
	// InsecureSkipTLS skips TLS certificate verification when connecting
	// to the remote repository.
	InsecureSkipTLS bool
	// CABundle is a PEM encoded certificate authority bundle used to
	// verify the remote repository's certificate.
	CABundle []byte
	// ProxyOptions configures the proxy used to connect to the remote.
	ProxyOptions transport.ProxyOptions
	// RequireRemoteRefs only allows the push to proceed if the remote
	// references have the given values prior to the push.
	RequireRemoteRefs []config.RefSpec
	// FollowTags pushes any annotated tags that point into the pushed
	// history alongside the requested refspecs.
	FollowTags bool
	// Atomic requests that the server update all refs in one atomic
	// transaction, either all succeed or none do.
	Atomic bool
	// Options is a set of push options sent to the server as part of the
	// push negotiation.
	Options map[string]string
}

// Validate validates the fields and sets the default values.
func (o *PushOptions) Validate() error {
	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	return o.ProxyOptions.Validate()
}

// PeelingOption controls whether peeled references are returned by
// Remote.List.
type PeelingOption int

const (
	// IgnorePeeled excludes peeled references from the list.
	IgnorePeeled PeelingOption = iota
	// AppendPeeled appends peeled references to the list, alongside
	// their non-peeled counterparts.
	AppendPeeled
	// OnlyPeeled excludes non-peeled references from the list.
	OnlyPeeled
)

// ListOptions describes how a remote's references are listed.
type ListOptions struct {
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// InsecureSkipTLS skips TLS certificate verification when connecting
	// to the remote repository.
	InsecureSkipTLS bool
	// CABundle is a PEM encoded certificate authority bundle used to
	// verify the remote repository's certificate.
	CABundle []byte
	// ProxyOptions configures the proxy used to connect to the remote.
	ProxyOptions transport.ProxyOptions
	// PeelingOption controls whether peeled references are included in
	// the result.
	PeelingOption PeelingOption
	// Timeout bounds how long the list operation may take, 0 means no
	// timeout.
	Timeout time.Duration
}
