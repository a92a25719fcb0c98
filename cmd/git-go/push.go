package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	git "github.com/gitforge/forge"
	"github.com/gitforge/forge/config"
)

func newPushCmd(log *logrus.Logger) *cobra.Command {
	var remoteName string
	var force bool

	cmd := &cobra.Command{
		Use:   "push [remote] [refspec...]",
		Short: "update remote refs along with associated objects",
		Args:  cobra.ArbitraryArgs,
	}

	cmd.Flags().StringVar(&remoteName, "remote", git.DefaultRemoteName, "remote to push to")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "allow non-fast-forward updates")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		refspecs := args
		if len(refspecs) > 0 {
			remoteName = refspecs[0]
			refspecs = refspecs[1:]
		}

		r, err := openRepository()
		if err != nil {
			return err
		}

		specs := make([]config.RefSpec, len(refspecs))
		for i, s := range refspecs {
			specs[i] = config.RefSpec(s)
		}

		log.WithField("remote", remoteName).WithField("refspecs", refspecs).Debug("pushing")

		if err := r.Push(&git.PushOptions{
			RemoteName: remoteName,
			RefSpecs:   specs,
			Force:      force,
			Progress:   cmd.ErrOrStderr(),
		}); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "done")
		return nil
	}

	return cmd
}
