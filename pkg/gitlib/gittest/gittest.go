// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pathfollow/pkg/gitlib"
)

// Branch is the branch Commit advances.
const Branch = "refs/heads/main"

// Repo is a repository in a temporary directory. Its working tree is the
// snapshot recorded by the next Commit.
type Repo struct {
	Path string

	t      *testing.T
	native *git2go.Repository
	clock  time.Time
}

// New initializes an empty repository.
func New(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()

	native, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(native.Free)

	return &Repo{
		Path:   dir,
		t:      t,
		native: native,
		clock:  time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
}

// WriteFile creates or overwrites name in the working tree.
func (r *Repo) WriteFile(name, content string) {
	r.t.Helper()

	path := filepath.Join(r.Path, filepath.FromSlash(name))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

// Remove deletes name from the working tree.
func (r *Repo) Remove(name string) {
	r.t.Helper()

	require.NoError(r.t, os.Remove(filepath.Join(r.Path, filepath.FromSlash(name))))
}

// Move renames a file in the working tree.
func (r *Repo) Move(from, to string) {
	r.t.Helper()

	target := filepath.Join(r.Path, filepath.FromSlash(to))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(r.t, os.Rename(filepath.Join(r.Path, filepath.FromSlash(from)), target))
}

// Commit records the working tree with the given parents and points the
// main branch and HEAD at the new commit. Each commit is one minute newer
// than the previous one.
func (r *Repo) Commit(message string, parents ...gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	index, err := r.native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	require.NoError(r.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(r.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(r.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	nativeParents := make([]*git2go.Commit, 0, len(parents))

	for _, parent := range parents {
		commit, lookupErr := r.native.LookupCommit(parent.ToOid())
		require.NoError(r.t, lookupErr)

		defer commit.Free()

		nativeParents = append(nativeParents, commit)
	}

	r.clock = r.clock.Add(time.Minute)
	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: r.clock}

	oid, err := r.native.CreateCommit("", sig, sig, message, tree, nativeParents...)
	require.NoError(r.t, err)

	ref, err := r.native.References.Create(Branch, oid, true, "commit: "+message)
	require.NoError(r.t, err)
	ref.Free()

	require.NoError(r.t, r.native.SetHead(Branch))

	return gitlib.HashFromOid(oid)
}

// Open opens the repository through gitlib and frees it on cleanup.
func (r *Repo) Open() *gitlib.Repository {
	r.t.Helper()

	repo, err := gitlib.OpenRepository(r.Path)
	require.NoError(r.t, err)

	r.t.Cleanup(repo.Free)

	return repo
}
