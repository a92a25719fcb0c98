package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newPackRefsCmd(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack-refs",
		Short: "pack loose refs into packed-refs",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := openRepository()
		if err != nil {
			return err
		}

		log.Debug("packing refs")

		if err := r.Storer().PackRefs(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "done")
		return nil
	}

	return cmd
}
