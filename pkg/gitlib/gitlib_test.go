package gitlib_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pathfollow/pkg/gitlib"
	"github.com/Sumatoshi-tech/pathfollow/pkg/gitlib/gittest"
)

func TestOpenRepository(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.WriteFile("test.txt", "content")
	tr.Commit("initial")

	repo := tr.Open()
	assert.Equal(t, tr.Path, repo.Path())
}

func TestOpenRepositoryNotFound(t *testing.T) {
	t.Parallel()

	repo, err := gitlib.OpenRepository("/nonexistent/path/to/repo")
	require.Error(t, err)
	assert.Nil(t, repo)
	assert.Contains(t, err.Error(), "open repository")
}

func TestResolveRevision(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.WriteFile("a.txt", "1")
	first := tr.Commit("first")
	tr.WriteFile("a.txt", "2")
	second := tr.Commit("second", first)

	repo := tr.Open()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head)

	for spec, want := range map[string]gitlib.Hash{
		"HEAD":              second,
		"HEAD~1":            first,
		"main":              second,
		first.String():      first,
		first.String()[:10]: first,
		second.Short():      second,
	} {
		got, resolveErr := repo.ResolveRevision(spec)
		require.NoError(t, resolveErr, spec)
		assert.Equal(t, want, got, spec)
	}

	_, err = repo.ResolveRevision("no-such-branch")
	require.ErrorIs(t, err, gitlib.ErrRevisionNotFound)
}

func TestLookupCommit(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.WriteFile("a.txt", "1")
	first := tr.Commit("first")
	tr.WriteFile("a.txt", "2")
	second := tr.Commit("second line\n\nbody", first)

	repo := tr.Open()

	commit, err := repo.LookupCommit(context.Background(), second)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, second, commit.Hash())
	assert.Equal(t, "second line", commit.Summary())
	assert.Equal(t, "Test User", commit.Author().Name)
	assert.Equal(t, 1, commit.NumParents())
	assert.Equal(t, first, commit.ParentHash(0))
	assert.False(t, commit.TreeHash().IsZero())

	_, err = repo.LookupCommit(context.Background(), gitlib.Hash{1})
	require.Error(t, err)
}

func TestTreeBlobAt(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.WriteFile("a.txt", "alpha")
	tr.WriteFile("dir/b.txt", "beta")
	hash := tr.Commit("initial")

	repo := tr.Open()

	commit, err := repo.LookupCommit(context.Background(), hash)
	require.NoError(t, err)

	defer commit.Free()

	tree, err := repo.LookupTree(commit.TreeHash())
	require.NoError(t, err)

	defer tree.Free()

	blobID, ok := tree.BlobAt("dir/b.txt")
	require.True(t, ok)

	_, ok = tree.BlobAt("dir")
	assert.False(t, ok)

	_, ok = tree.BlobAt("missing.txt")
	assert.False(t, ok)

	blob, err := repo.LookupBlob(context.Background(), blobID)
	require.NoError(t, err)

	defer blob.Free()

	assert.Equal(t, "beta", string(blob.Contents()))
	assert.Equal(t, int64(4), blob.Size())
	assert.Equal(t, blobID, blob.Hash())
}

func TestWalk_TopologicalOrder(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.WriteFile("a.txt", "1")
	root := tr.Commit("root")
	tr.WriteFile("b.txt", "side")
	side := tr.Commit("side", root)
	tr.WriteFile("a.txt", "2")
	mainline := tr.Commit("main", root)
	merge := tr.Commit("merge", mainline, side)

	repo := tr.Open()

	walk, err := repo.Walk()
	require.NoError(t, err)

	defer walk.Free()

	require.NoError(t, walk.Push(merge))

	var order []gitlib.Hash

	require.NoError(t, walk.ForEach(func(c *gitlib.Commit) error {
		order = append(order, c.Hash())

		return nil
	}))

	require.Len(t, order, 4)
	assert.Equal(t, merge, order[0])
	assert.Equal(t, root, order[3])

	_, err = walk.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWalk_ForEachStopsOnError(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.WriteFile("a.txt", "1")
	first := tr.Commit("first")
	tr.WriteFile("a.txt", "2")
	second := tr.Commit("second", first)

	repo := tr.Open()

	walk, err := repo.Walk()
	require.NoError(t, err)

	defer walk.Free()

	require.NoError(t, walk.Push(second))

	errStop := errors.New("stop")
	calls := 0

	err = walk.ForEach(func(*gitlib.Commit) error {
		calls++

		return errStop
	})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, calls)
}

func TestTreeDiff(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.WriteFile("keep.txt", "same")
	tr.WriteFile("edit.txt", "v1")
	tr.WriteFile("old.txt", "moved content")
	first := tr.Commit("first")

	tr.WriteFile("edit.txt", "v2")
	tr.Move("old.txt", "new.txt")
	second := tr.Commit("second", first)

	repo := tr.Open()
	oldTree := treeOf(t, repo, first)
	newTree := treeOf(t, repo, second)

	changes, err := gitlib.TreeDiff(repo, oldTree, newTree)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	inserted := changes.Inserted()
	require.Len(t, inserted, 1)
	assert.Equal(t, "new.txt", inserted[0].Name)

	deleted := changes.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, "old.txt", deleted[0].Name)
	assert.Equal(t, inserted[0].Hash, deleted[0].Hash)

	// Against the empty tree every file is an insertion.
	initial, err := gitlib.TreeDiff(repo, nil, oldTree)
	require.NoError(t, err)
	assert.Len(t, initial.Inserted(), 3)

	same, err := gitlib.TreeDiff(repo, oldTree, oldTree)
	require.NoError(t, err)
	assert.Empty(t, same)
}

func treeOf(t *testing.T, repo *gitlib.Repository, hash gitlib.Hash) *gitlib.Tree {
	t.Helper()

	commit, err := repo.LookupCommit(context.Background(), hash)
	require.NoError(t, err)

	defer commit.Free()

	tree, err := repo.LookupTree(commit.TreeHash())
	require.NoError(t, err)

	t.Cleanup(tree.Free)

	return tree
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	h, err := gitlib.ParseHash("0123456789abcdef0123456789abcdef01234567")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", h.String())
	assert.Equal(t, "01234567", h.Short())
	assert.False(t, h.IsZero())
	assert.Equal(t, h, gitlib.HashFromOid(h.ToOid()))

	_, err = gitlib.ParseHash("xyz")
	require.ErrorIs(t, err, gitlib.ErrInvalidHash)

	_, err = gitlib.ParseHash("zz23456789abcdef0123456789abcdef01234567")
	require.ErrorIs(t, err, gitlib.ErrInvalidHash)

	assert.True(t, gitlib.Hash{}.IsZero())
}
