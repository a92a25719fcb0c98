package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	git "github.com/gitforge/forge"
)

func newPullCmd(log *logrus.Logger) *cobra.Command {
	var remoteName string
	var force bool

	cmd := &cobra.Command{
		Use:   "pull [remote]",
		Short: "fetch from a remote and fast-forward the current branch",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringVar(&remoteName, "remote", git.DefaultRemoteName, "remote to pull from")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "allow updates that are not fast-forwards")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			remoteName = args[0]
		}

		r, err := openRepository()
		if err != nil {
			return err
		}

		log.WithField("remote", remoteName).Debug("pulling")

		err = r.Pull(&git.PullOptions{
			RemoteName: remoteName,
			Force:      force,
			Progress:   cmd.ErrOrStderr(),
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "done")
		return nil
	}

	return cmd
}
