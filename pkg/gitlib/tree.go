package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
}

// Hash returns the tree hash.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// BlobAt returns the id of the blob at path. It reports false when the path
// is missing or names a directory or submodule.
func (t *Tree) BlobAt(path string) (Hash, bool) {
	entry, err := t.tree.EntryByPath(path)
	if err != nil || entry.Type != git2go.ObjectBlob {
		return Hash{}, false
	}

	return HashFromOid(entry.Id), true
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}
