// Package worktree materializes a commit's tree onto a filesystem,
// recreating the directory structure and file contents git's object
// model describes.
package worktree

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/objstore"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ErrUnsupportedMode is returned when a tree entry's mode isn't one this
// materializer knows how to write to a regular filesystem. Submodules
// (gitlinks) and symlinks fall in this category.
var ErrUnsupportedMode = errors.New("unsupported tree entry mode")

const (
	dirPerm  = 0o755
	filePerm = 0o644
	execPerm = 0o755
)

// Materialize walks commitOid's tree and recreates it under root on fs,
// creating directories as needed.
func Materialize(fs afero.Fs, store *objstore.Store, commitOid githash.Oid, root string) error {
	_, content, err := store.GetContent(commitOid)
	if err != nil {
		return xerrors.Errorf("reading commit %s: %w", commitOid, err)
	}
	commit, err := object.NewCommitFromObject(object.New(object.TypeCommit, content))
	if err != nil {
		return xerrors.Errorf("decoding commit %s: %w", commitOid, err)
	}

	if err := fs.MkdirAll(root, dirPerm); err != nil {
		return xerrors.Errorf("creating worktree root %s: %w", root, err)
	}

	return writeTree(fs, store, commit.TreeID(), root)
}

func writeTree(fs afero.Fs, store *objstore.Store, treeOid githash.Oid, dir string) error {
	_, content, err := store.GetContent(treeOid)
	if err != nil {
		return xerrors.Errorf("reading tree %s: %w", treeOid, err)
	}
	tree, err := object.NewTreeFromObject(object.New(object.TypeTree, content))
	if err != nil {
		return xerrors.Errorf("decoding tree %s: %w", treeOid, err)
	}

	for _, entry := range tree.Entries() {
		path := filepath.Join(dir, entry.Path)

		switch entry.Mode {
		case object.ModeDirectory:
			if err := fs.MkdirAll(path, dirPerm); err != nil {
				return xerrors.Errorf("creating directory %s: %w", path, err)
			}
			if err := writeTree(fs, store, entry.ID, path); err != nil {
				return err
			}
		case object.ModeFile, object.ModeExecutable:
			if err := writeBlob(fs, store, entry.ID, path, entry.Mode); err != nil {
				return err
			}
		default:
			return xerrors.Errorf("entry %s has mode %o: %w", entry.Path, entry.Mode, ErrUnsupportedMode)
		}
	}
	return nil
}

func writeBlob(fs afero.Fs, store *objstore.Store, blobOid githash.Oid, path string, mode object.TreeObjectMode) error {
	_, content, err := store.GetContent(blobOid)
	if err != nil {
		return xerrors.Errorf("reading blob %s: %w", blobOid, err)
	}

	perm := os.FileMode(filePerm)
	if mode.IsExecutable() {
		perm = execPerm
	}
	if err := afero.WriteFile(fs, path, content, perm); err != nil {
		return xerrors.Errorf("writing %s: %w", path, err)
	}
	return nil
}
