package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	git "github.com/gitforge/forge"
)

func newCloneCmd(log *logrus.Logger) *cobra.Command {
	var bare bool
	var singleBranch bool
	var depth int

	cmd := &cobra.Command{
		Use:   "clone URL [directory]",
		Short: "clone a repository into a new directory",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.Flags().BoolVar(&bare, "bare", false, "create a bare repository")
	cmd.Flags().BoolVar(&singleBranch, "single-branch", false, "clone only the tip of a single branch")
	cmd.Flags().IntVar(&depth, "depth", 0, "create a shallow clone with a history truncated to the given depth")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		url := args[0]
		dir := ""
		if len(args) > 1 {
			dir = args[1]
		} else {
			dir = defaultCloneDir(url)
		}

		log.WithField("url", url).WithField("dir", dir).Debug("cloning repository")

		_, err := git.PlainClone(dir, &git.CloneOptions{
			URL:          url,
			Bare:         bare,
			SingleBranch: singleBranch,
			Depth:        depth,
			Progress:     cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Cloning into %q...\n", dir)
		return nil
	}

	return cmd
}

// defaultCloneDir mirrors `git clone`'s rule: the last path segment of the
// URL, with a trailing ".git" stripped.
func defaultCloneDir(url string) string {
	name := filepath.Base(strings.TrimSuffix(url, "/"))
	return strings.TrimSuffix(name, ".git")
}
