package main

import (
	"fmt"
	"io"

	"github.com/goclone/gogit/repo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newInitCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "create an empty git repository",
		Args:  cobra.MaximumNArgs(1),
	}

	bare := cmd.Flags().Bool("bare", false, "create a bare repository, with no working tree")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := cfg.workingDir()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			dir = args[0]
		}
		return initCmd(cmd.OutOrStdout(), dir, *bare)
	}

	return cmd
}

func initCmd(out io.Writer, dir string, bare bool) error {
	r, err := repo.Init(afero.NewOsFs(), dir, bare)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Initialized empty Git repository in %s\n", r.GitDir())
	return nil
}
