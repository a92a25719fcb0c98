package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	git "github.com/gitforge/forge"
)

func newInitCmd(log *logrus.Logger) *cobra.Command {
	var bare bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "create an empty git repository",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().BoolVar(&bare, "bare", false, "create a bare repository")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		log.WithField("dir", dir).WithField("bare", bare).Debug("initializing repository")

		if _, err := git.PlainInit(dir, bare); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty Git repository in %s\n", dir)
		return nil
	}

	return cmd
}
