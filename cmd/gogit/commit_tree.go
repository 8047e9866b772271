package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/repo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newCommitTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree TREE",
		Short: "create a new commit object from a tree and a message",
		Args:  cobra.ExactArgs(1),
	}

	var parents []string
	cmd.Flags().StringArrayVarP(&parents, "parent", "p", nil, "a parent commit, may be given multiple times")
	message := cmd.Flags().StringP("message", "m", "", "the commit message")
	author := cmd.Flags().String("author", "", "the commit author, as \"Name <email>\"")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := cfg.workingDir()
		if err != nil {
			return err
		}
		return commitTreeCmd(cmd.OutOrStdout(), dir, args[0], parents, *message, *author)
	}

	return cmd
}

func commitTreeCmd(out io.Writer, dir, treeArg string, parentArgs []string, message, authorArg string) error {
	treeOid, err := githash.FromHex(treeArg)
	if err != nil {
		return err
	}

	parents := make([]githash.Oid, 0, len(parentArgs))
	for _, p := range parentArgs {
		oid, err := githash.FromHex(p)
		if err != nil {
			return err
		}
		parents = append(parents, oid)
	}

	sig, err := parseSignature(authorArg)
	if err != nil {
		return err
	}

	r, err := repo.Open(afero.NewOsFs(), dir, false)
	if err != nil {
		return err
	}

	oid, err := r.CommitTree(treeOid, parents, sig, message)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid.String())
	return nil
}

// parseSignature parses "Name <email>" into a Signature stamped with the
// current time. An empty input falls back to a generic placeholder
// identity, since this command has no notion of a configured user.
func parseSignature(s string) (object.Signature, error) {
	if s == "" {
		return object.NewSignature("gogit", "gogit@localhost"), nil
	}

	lt := -1
	gt := -1
	for i, c := range s {
		if c == '<' && lt == -1 {
			lt = i
		}
		if c == '>' {
			gt = i
		}
	}
	if lt == -1 || gt == -1 || gt < lt {
		return object.Signature{}, xerrors.Errorf("invalid author %q, expected \"Name <email>\"", s)
	}

	name := strings.TrimSpace(s[:lt])
	email := s[lt+1 : gt]
	return object.Signature{Name: name, Email: email, Time: time.Now()}, nil
}
