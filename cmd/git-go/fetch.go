package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	git "github.com/gitforge/forge"
)

func newFetchCmd(log *logrus.Logger) *cobra.Command {
	var remoteName string

	cmd := &cobra.Command{
		Use:   "fetch [remote]",
		Short: "download objects and refs from another repository",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringVar(&remoteName, "remote", git.DefaultRemoteName, "remote to fetch from")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			remoteName = args[0]
		}

		r, err := openRepository()
		if err != nil {
			return err
		}

		log.WithField("remote", remoteName).Debug("fetching")

		err = r.Fetch(&git.FetchOptions{
			RemoteName: remoteName,
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
