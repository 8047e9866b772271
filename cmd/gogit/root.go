package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags carries the options shared by every subcommand.
type globalFlags struct {
	// C mirrors git's -C: run as if gogit was started in this directory.
	C string
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gogit",
		Short:         "a small git implementation in Go",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cfg := &globalFlags{}
	cmd.PersistentFlags().StringVarP(&cfg.C, "C", "C", "", "run as if gogit was started in the given path instead of the current directory")

	// porcelain
	cmd.AddCommand(newInitCmd(cfg))
	cmd.AddCommand(newCloneCmd(cfg))

	// plumbing
	cmd.AddCommand(newHashObjectCmd(cfg))
	cmd.AddCommand(newCatFileCmd(cfg))
	cmd.AddCommand(newLsTreeCmd(cfg))
	cmd.AddCommand(newWriteTreeCmd(cfg))
	cmd.AddCommand(newCommitTreeCmd(cfg))

	return cmd
}

// workingDir returns cfg.C if set, otherwise the process's current
// working directory.
func (cfg *globalFlags) workingDir() (string, error) {
	if cfg.C != "" {
		return cfg.C, nil
	}
	return os.Getwd()
}
