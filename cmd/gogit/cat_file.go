package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/repo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var errAmbiguousCatFileOptions = errors.New("options -t and -s are mutually exclusive")

func newCatFileCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file OBJECT",
		Short: "print content or type/size information about a repository object",
		Args:  cobra.ExactArgs(1),
	}

	typeOnly := cmd.Flags().BoolP("t", "t", false, "show the object's type")
	sizeOnly := cmd.Flags().BoolP("s", "s", false, "show the object's size")
	prettyPrint := cmd.Flags().BoolP("p", "p", true, "pretty-print the object's content based on its type")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := cfg.workingDir()
		if err != nil {
			return err
		}
		return catFileCmd(cmd.OutOrStdout(), dir, args[0], *typeOnly, *sizeOnly, *prettyPrint)
	}

	return cmd
}

func catFileCmd(out io.Writer, dir, objectName string, typeOnly, sizeOnly, prettyPrint bool) error {
	if count := boolCount(typeOnly, sizeOnly); count > 1 {
		return errAmbiguousCatFileOptions
	}

	r, err := repo.Open(afero.NewOsFs(), dir, false)
	if err != nil {
		return err
	}

	oid, err := resolveObjectName(r, objectName)
	if err != nil {
		return err
	}

	typ, content, err := r.GetObject(oid)
	if err != nil {
		return err
	}
	o := object.New(typ, content)

	switch {
	case sizeOnly:
		fmt.Fprintln(out, strconv.Itoa(o.Size()))
	case typeOnly:
		fmt.Fprintln(out, o.Type().String())
	default:
		return prettyPrintObject(out, o)
	}
	return nil
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// resolveObjectName parses objectName as a hex Oid, falling back to
// resolving it as a reference name (HEAD, a branch, etc.).
func resolveObjectName(r *repo.Repository, objectName string) (githash.Oid, error) {
	if oid, err := githash.FromHex(objectName); err == nil {
		return oid, nil
	}
	oid, err := r.ResolveRef(objectName)
	if err != nil {
		return githash.NullOid, xerrors.Errorf("not a valid object name %s: %w", objectName, err)
	}
	return oid, nil
}

func prettyPrintObject(out io.Writer, o *object.Object) error {
	switch o.Type() {
	case object.TypeCommit:
		c, err := o.AsCommit()
		if err != nil {
			return xerrors.Errorf("could not decode commit: %w", err)
		}
		fmt.Fprintf(out, "tree %s\n", c.TreeID().String())
		for _, id := range c.ParentIDs() {
			fmt.Fprintf(out, "parent %s\n", id.String())
		}
		fmt.Fprintf(out, "author %s\n", c.Author().String())
		fmt.Fprintf(out, "committer %s\n", c.Committer().String())
		if c.GPGSig() != "" {
			fmt.Fprintf(out, "gpgsig %s\n", c.GPGSig())
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, c.Message())
	case object.TypeTree:
		tree, err := o.AsTree()
		if err != nil {
			return xerrors.Errorf("could not decode tree: %w", err)
		}
		for _, e := range tree.Entries() {
			fmt.Fprintf(out, "%06o %s %s\t%s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
		}
	case object.TypeBlob:
		fmt.Fprint(out, string(o.Bytes()))
	default:
		return xerrors.Errorf("pretty-print not supported for type %s", o.Type().String())
	}
	return nil
}
