package main

import (
	"errors"

	git "github.com/gitforge/forge"
)

// openRepository opens the repository rooted at the current working
// directory, falling back to a bare open when no worktree exists.
func openRepository() (*git.Repository, error) {
	r, err := git.PlainOpen(".")
	if err == nil {
		return r, nil
	}
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, errors.New("not a git repository (or any of the parent directories)")
	}
	return nil, err
}
