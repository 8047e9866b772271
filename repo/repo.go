// Package repo ties the object store, reference resolution, and
// configuration together into a single repository façade, the way a
// caller of the plumbing actually wants to use it: open/init a
// repository, then read or write objects, refs, and trees through it.
package repo

import (
	"errors"
	"path/filepath"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/gitconfig"
	"github.com/goclone/gogit/internal/gitpath"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/objstore"
	"github.com/goclone/gogit/refs"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ErrRepositoryNotExist is returned by Open when no repository is found
// at the target path.
var ErrRepositoryNotExist = errors.New("repository does not exist")

// defaultBranch is the branch HEAD points at in a freshly initialized
// repository.
const defaultBranch = "refs/heads/main"

// Repository represents a single .git directory: the object store plus
// reference storage rooted at gitDir, and (for a non-bare repository) a
// working tree rooted at workTree.
type Repository struct {
	fs       afero.Fs
	gitDir   string
	workTree string
	isBare   bool
	store    *objstore.Store
}

// Init creates a new repository at path: a .git directory containing
// objects/, refs/heads/, refs/tags/, and a HEAD pointing at
// refs/heads/main. Init is idempotent: if a repository already exists at
// path (HEAD is already present), it is left untouched and returned
// rather than recreated.
func Init(fs afero.Fs, path string, isBare bool) (*Repository, error) {
	gitDir := path
	workTree := ""
	if !isBare {
		gitDir = filepath.Join(path, gitpath.DotGitPath)
		workTree = path
	}

	if exists, err := afero.Exists(fs, filepath.Join(gitDir, gitpath.HEADPath)); err != nil {
		return nil, xerrors.Errorf("checking for existing repository: %w", err)
	} else if exists {
		return open(fs, gitDir, workTree, isBare)
	}

	if err := fs.MkdirAll(filepath.Join(gitDir, gitpath.ObjectsPath), 0o755); err != nil {
		return nil, xerrors.Errorf("creating objects directory: %w", err)
	}
	if err := fs.MkdirAll(filepath.Join(gitDir, gitpath.RefsHeadsPath), 0o755); err != nil {
		return nil, xerrors.Errorf("creating refs/heads directory: %w", err)
	}
	if err := fs.MkdirAll(filepath.Join(gitDir, gitpath.RefsTagsPath), 0o755); err != nil {
		return nil, xerrors.Errorf("creating refs/tags directory: %w", err)
	}

	headContent := "ref: " + defaultBranch + "\n"
	if err := afero.WriteFile(fs, filepath.Join(gitDir, gitpath.HEADPath), []byte(headContent), 0o644); err != nil {
		return nil, xerrors.Errorf("writing HEAD: %w", err)
	}

	if _, err := gitconfig.LoadConfigSkipEnv(gitconfig.LoadConfigOptions{
		FS:               fs,
		GitDirPath:       gitDir,
		WorkTreePath:     workTree,
		IsBare:           isBare,
		SkipGitDirLookUp: true,
	}); err != nil {
		return nil, xerrors.Errorf("computing repository config: %w", err)
	}

	return open(fs, gitDir, workTree, isBare)
}

// Open loads an existing repository rooted at path.
func Open(fs afero.Fs, path string, isBare bool) (*Repository, error) {
	gitDir := path
	workTree := ""
	if !isBare {
		gitDir = filepath.Join(path, gitpath.DotGitPath)
		workTree = path
	}

	exists, err := afero.Exists(fs, filepath.Join(gitDir, gitpath.HEADPath))
	if err != nil {
		return nil, xerrors.Errorf("checking for repository: %w", err)
	}
	if !exists {
		return nil, ErrRepositoryNotExist
	}

	return open(fs, gitDir, workTree, isBare)
}

func open(fs afero.Fs, gitDir, workTree string, isBare bool) (*Repository, error) {
	return &Repository{
		fs:       fs,
		gitDir:   gitDir,
		workTree: workTree,
		isBare:   isBare,
		store:    objstore.New(fs, filepath.Join(gitDir, gitpath.ObjectsPath)),
	}, nil
}

// GitDir returns the path to the repository's .git directory.
func (r *Repository) GitDir() string {
	return r.gitDir
}

// WorkTree returns the path to the repository's working tree, or "" for
// a bare repository.
func (r *Repository) WorkTree() string {
	return r.workTree
}

// Store returns the repository's object store.
func (r *Repository) Store() *objstore.Store {
	return r.store
}

// GetObject returns the type and content of the object identified by oid.
func (r *Repository) GetObject(oid githash.Oid) (object.Type, []byte, error) {
	return r.store.GetContent(oid)
}

// WriteObject persists o and returns its Oid.
func (r *Repository) WriteObject(o *object.Object) (githash.Oid, error) {
	return r.store.Put(o.Canonical())
}

// HashObject computes the Oid of the given content as an object of the
// given type, persisting it if write is true.
func (r *Repository) HashObject(typ object.Type, content []byte, write bool) (githash.Oid, error) {
	o := object.New(typ, content)
	if !write {
		return o.ID(), nil
	}
	return r.WriteObject(o)
}

// WriteTree persists a new tree built from entries and returns its Oid.
func (r *Repository) WriteTree(entries []object.TreeEntry) (githash.Oid, error) {
	return r.WriteObject(object.NewTree(entries).ToObject())
}

// CommitTree persists a new commit pointing at treeID, with the given
// parents, author/committer, and message.
func (r *Repository) CommitTree(treeID githash.Oid, parents []githash.Oid, author object.Signature, message string) (githash.Oid, error) {
	c := object.NewCommit(treeID, author, &object.CommitOptions{
		Message:   message,
		ParentsID: parents,
	})
	return r.WriteObject(c.ToObject())
}

// refContent reads the raw content of the reference file name, used as
// the refs.Content callback for refs.Resolve.
func (r *Repository) refContent(name string) ([]byte, error) {
	data, err := afero.ReadFile(r.fs, filepath.Join(r.gitDir, name))
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", name, refs.ErrRefNotFound)
	}
	return data, nil
}

// ResolveRef resolves name (e.g. "HEAD" or "refs/heads/main") down to the
// Oid it ultimately points at.
func (r *Repository) ResolveRef(name string) (githash.Oid, error) {
	ref, err := refs.Resolve(name, r.refContent)
	if err != nil {
		return githash.NullOid, err
	}
	return ref.Target(), nil
}

// UpdateRef writes a direct reference pointing name at target.
func (r *Repository) UpdateRef(name string, target githash.Oid) error {
	path := filepath.Join(r.gitDir, name)
	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Errorf("creating directory for ref %s: %w", name, err)
	}
	content := target.String() + "\n"
	if err := afero.WriteFile(r.fs, path, []byte(content), 0o644); err != nil {
		return xerrors.Errorf("writing ref %s: %w", name, err)
	}
	return nil
}
