package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/repo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newWriteTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-tree",
		Short: "create a tree from lines of the form \"MODE PATH OID\" read from stdin",
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := cfg.workingDir()
		if err != nil {
			return err
		}
		return writeTreeCmd(cmd.OutOrStdout(), cmd.InOrStdin(), dir)
	}

	return cmd
}

func writeTreeCmd(out io.Writer, in io.Reader, dir string) error {
	entries, err := parseTreeEntries(in)
	if err != nil {
		return err
	}

	r, err := repo.Open(afero.NewOsFs(), dir, false)
	if err != nil {
		return err
	}

	oid, err := r.WriteTree(entries)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid.String())
	return nil
}

func parseTreeEntries(in io.Reader) ([]object.TreeEntry, error) {
	var entries []object.TreeEntry

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, xerrors.Errorf("malformed entry %q: expected \"MODE PATH OID\"", line)
		}

		mode, err := strconv.ParseInt(fields[0], 8, 32)
		if err != nil {
			return nil, xerrors.Errorf("invalid mode %q: %w", fields[0], err)
		}
		oid, err := githash.FromHex(fields[2])
		if err != nil {
			return nil, xerrors.Errorf("invalid oid %q: %w", fields[2], err)
		}

		entries = append(entries, object.TreeEntry{
			Mode: object.TreeObjectMode(mode),
			Path: fields[1],
			ID:   oid,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
