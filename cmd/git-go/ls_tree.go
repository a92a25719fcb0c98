package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/object"
)

func newLsTreeCmd(log *logrus.Logger) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls-tree <tree-ish>",
		Short: "list the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into sub-trees")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := openRepository()
		if err != nil {
			return err
		}

		h := plumbing.NewHash(args[0])

		tree, err := r.Tree(h)
		if err != nil {
			commit, cErr := r.CommitObject(h)
			if cErr != nil {
				return fmt.Errorf("%s is not a tree or a commit", args[0])
			}
			tree, err = r.Tree(commit.TreeHash)
			if err != nil {
				return err
			}
		}

		log.WithField("tree", tree.Hash.String()).Debug("listing tree")

		out := cmd.OutOrStdout()
		walker := object.NewTreeWalker(tree, recursive, make(map[plumbing.Hash]bool))
		defer walker.Close()

		for {
			name, entry, err := walker.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}

			typ := "blob"
			if !entry.Mode.IsFile() {
				typ = "tree"
			}

			fmt.Fprintf(out, "%06o %s %s\t%s\n", entry.Mode, typ, entry.Hash, name)
		}
	}

	return cmd
}
