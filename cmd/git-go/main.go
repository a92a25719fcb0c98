// Command git-go is a thin CLI over the root package, exposing the subset
// of porcelain that this module actually implements.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	log := logrus.New()

	cmd := &cobra.Command{
		Use:           "git-go",
		Short:         "a git-compatible object database, pack engine and smart-transfer client",
		SilenceErrors: false,
		SilenceUsage:  true,
	}

	var verbose bool
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	}

	cmd.AddCommand(newInitCmd(log))
	cmd.AddCommand(newCloneCmd(log))
	cmd.AddCommand(newFetchCmd(log))
	cmd.AddCommand(newPushCmd(log))
	cmd.AddCommand(newPullCmd(log))
	cmd.AddCommand(newLogCmd(log))
	cmd.AddCommand(newLsTreeCmd(log))
	cmd.AddCommand(newLsRemoteCmd(log))
	cmd.AddCommand(newPackRefsCmd(log))
	cmd.AddCommand(newFsckCmd(log))

	// Vocabulary named by the external interface but out of scope: no
	// merge engine, no working tree materialization.
	for _, use := range []string{"status", "add", "commit", "checkout", "diff", "rm", "repack", "gc"} {
		cmd.AddCommand(newNotImplementedCmd(use))
	}

	return cmd
}

func newNotImplementedCmd(use string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: use + " (not implemented)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errNotImplemented
		},
	}
}
