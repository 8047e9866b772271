package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/repo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newHashObjectCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object FILE",
		Short: "compute the object ID of a file, optionally writing it to the store",
		Args:  cobra.ExactArgs(1),
	}

	typ := cmd.Flags().StringP("type", "t", "blob", "the object type to hash the file as")
	write := cmd.Flags().BoolP("write", "w", false, "actually write the object into the object database")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := cfg.workingDir()
		if err != nil {
			return err
		}
		return hashObjectCmd(cmd.OutOrStdout(), dir, args[0], *typ, *write)
	}

	return cmd
}

func hashObjectCmd(out io.Writer, dir, filePath, typ string, write bool) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	objType, err := object.NewTypeFromString(typ)
	if err != nil {
		return xerrors.Errorf("unsupported object type %s: %w", typ, err)
	}

	if !write {
		fmt.Fprintln(out, object.New(objType, content).ID().String())
		return nil
	}

	r, err := repo.Open(afero.NewOsFs(), dir, false)
	if err != nil {
		return err
	}
	oid, err := r.HashObject(objType, content, true)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid.String())
	return nil
}
