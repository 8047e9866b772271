package main

import (
	"fmt"
	"io"

	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/repo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newLsTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE-ISH",
		Short: "list the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	nameOnly := cmd.Flags().Bool("name-only", false, "list only the path of each entry")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := cfg.workingDir()
		if err != nil {
			return err
		}
		return lsTreeCmd(cmd.OutOrStdout(), dir, args[0], *nameOnly)
	}

	return cmd
}

func lsTreeCmd(out io.Writer, dir, treeish string, nameOnly bool) error {
	r, err := repo.Open(afero.NewOsFs(), dir, false)
	if err != nil {
		return err
	}

	oid, err := resolveObjectName(r, treeish)
	if err != nil {
		return err
	}

	typ, content, err := r.GetObject(oid)
	if err != nil {
		return err
	}
	if typ != object.TypeTree {
		return xerrors.Errorf("%s is a %s, not a tree", treeish, typ.String())
	}

	tree, err := object.NewTreeFromObject(object.New(typ, content))
	if err != nil {
		return err
	}

	// entries are printed in their on-disk order, not re-sorted: that
	// order is already the tree's canonical ordering.
	for _, e := range tree.Entries() {
		if nameOnly {
			fmt.Fprintln(out, e.Path)
			continue
		}
		fmt.Fprintf(out, "%06o %s %s\t%s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
	}
	return nil
}
