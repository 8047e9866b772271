package worktree_test

import (
	"testing"
	"time"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/objstore"
	"github.com/goclone/gogit/worktree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *objstore.Store {
	t.Helper()
	return objstore.New(afero.NewMemMapFs(), "objects")
}

func TestMaterializeSingleFile(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	blobOid, err := store.PutRaw(object.TypeBlob, []byte("X\n"))
	require.NoError(t, err)

	treeOid, err := store.Put(object.NewTree([]object.TreeEntry{
		{Path: "README.md", Mode: object.ModeFile, ID: blobOid},
	}).ToObject().Canonical())
	require.NoError(t, err)

	sig := object.Signature{Name: "author", Email: "author@example.com", Time: time.Unix(0, 0)}
	commit := object.NewCommit(treeOid, sig, &object.CommitOptions{Message: "initial\n"})
	commitOid, err := store.Put(commit.ToObject().Canonical())
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, worktree.Materialize(fs, store, commitOid, "/work"))

	content, err := afero.ReadFile(fs, "/work/README.md")
	require.NoError(t, err)
	assert.Equal(t, "X\n", string(content))
}

func TestMaterializeNestedDirectories(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	blobOid, err := store.PutRaw(object.TypeBlob, []byte("nested content"))
	require.NoError(t, err)

	innerTreeOid, err := store.Put(object.NewTree([]object.TreeEntry{
		{Path: "inner.txt", Mode: object.ModeFile, ID: blobOid},
	}).ToObject().Canonical())
	require.NoError(t, err)

	outerTreeOid, err := store.Put(object.NewTree([]object.TreeEntry{
		{Path: "subdir", Mode: object.ModeDirectory, ID: innerTreeOid},
	}).ToObject().Canonical())
	require.NoError(t, err)

	sig := object.Signature{Name: "author", Email: "author@example.com", Time: time.Unix(0, 0)}
	commit := object.NewCommit(outerTreeOid, sig, &object.CommitOptions{Message: "nested\n"})
	commitOid, err := store.Put(commit.ToObject().Canonical())
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, worktree.Materialize(fs, store, commitOid, "/work"))

	content, err := afero.ReadFile(fs, "/work/subdir/inner.txt")
	require.NoError(t, err)
	assert.Equal(t, "nested content", string(content))
}

func TestMaterializeRejectsUnsupportedMode(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	treeOid, err := store.Put(object.NewTree([]object.TreeEntry{
		{Path: "link", Mode: object.ModeSymLink, ID: githash.NullOid},
	}).ToObject().Canonical())
	require.NoError(t, err)

	sig := object.Signature{Name: "author", Email: "author@example.com", Time: time.Unix(0, 0)}
	commit := object.NewCommit(treeOid, sig, &object.CommitOptions{Message: "symlink\n"})
	commitOid, err := store.Put(commit.ToObject().Canonical())
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	err = worktree.Materialize(fs, store, commitOid, "/work")
	require.Error(t, err)
	assert.ErrorIs(t, err, worktree.ErrUnsupportedMode)
}
