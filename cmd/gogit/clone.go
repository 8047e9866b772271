package main

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/goclone/gogit/repo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newCloneCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone URL [DIRECTORY]",
		Short: "clone a repository over smart-HTTP into a new directory",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dest := ""
		if len(args) == 2 {
			dest = args[1]
		}
		return cloneCmd(cmd.OutOrStdout(), args[0], dest)
	}

	return cmd
}

func cloneCmd(out io.Writer, repoURL, dest string) error {
	if dest == "" {
		dest = defaultCloneDir(repoURL)
	}

	fmt.Fprintf(out, "Cloning into '%s'...\n", dest)
	_, err := repo.Clone(afero.NewOsFs(), repoURL, dest, repo.CloneOptions{HTTPClient: http.DefaultClient})
	return err
}

// defaultCloneDir derives the target directory from the repository URL
// the way real git does: the last path segment, with a trailing ".git"
// stripped.
func defaultCloneDir(repoURL string) string {
	name := path.Base(strings.TrimRight(repoURL, "/"))
	return strings.TrimSuffix(name, ".git")
}
