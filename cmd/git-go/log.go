package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	git "github.com/gitforge/forge"
	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/object"
	"github.com/gitforge/forge/plumbing/storer"
)

func newLogCmd(log *logrus.Logger) *cobra.Command {
	var maxCount int

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "show commit history starting at HEAD or the given revision",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().IntVarP(&maxCount, "max-count", "n", 0, "limit the number of commits shown, 0 means no limit")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := openRepository()
		if err != nil {
			return err
		}

		head, err := resolveRevision(r, args)
		if err != nil {
			return err
		}

		start, err := r.CommitObject(head)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		var shown int
		iter := object.NewCommitPreorderIter(start, nil, nil)
		err = iter.ForEach(func(c *object.Commit) error {
			if maxCount > 0 && shown >= maxCount {
				return storer.ErrStop
			}
			shown++

			fmt.Fprintf(out, "commit %s\n", c.Hash)
			if len(c.ParentHashes) > 1 {
				fmt.Fprintf(out, "Merge:")
				for _, p := range c.ParentHashes {
					fmt.Fprintf(out, " %s", p.String()[:7])
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
			fmt.Fprintf(out, "Date:   %s\n\n", c.Author.When)
			fmt.Fprintf(out, "    %s\n\n", c.Message)
			return nil
		})
		iter.Close()

		return err
	}

	return cmd
}

// resolveRevision resolves the log command's optional revision argument,
// defaulting to the repository's HEAD.
func resolveRevision(r *git.Repository, args []string) (h plumbing.Hash, err error) {
	if len(args) == 0 {
		ref, err := r.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return ref.Hash(), nil
	}

	return plumbing.NewHash(args[0]), nil
}
