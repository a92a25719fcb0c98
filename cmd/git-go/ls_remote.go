package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	git "github.com/gitforge/forge"
	"github.com/gitforge/forge/config"
)

func newLsRemoteCmd(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-remote <url>",
		Short: "list references in a remote repository",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		url := args[0]

		log.WithField("url", url).Debug("listing remote references")

		remote := git.NewRemote(nil, &config.RemoteConfig{
			Name: "ls-remote",
			URLs: []string{url},
		})

		refs, err := remote.List(&git.ListOptions{})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, ref := range refs {
			fmt.Fprintf(out, "%s\t%s\n", ref.Hash(), ref.Name())
		}

		return nil
	}

	return cmd
}
