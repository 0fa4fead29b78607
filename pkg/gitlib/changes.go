package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ChangeAction is the kind of a file change between two trees.
type ChangeAction int

const (
	// Insert indicates a new file was added.
	Insert ChangeAction = iota
	// Delete indicates a file was removed.
	Delete
	// Modify indicates a file was modified in place.
	Modify
)

// Change is a single file change between two trees.
type Change struct {
	Action ChangeAction
	From   ChangeEntry
	To     ChangeEntry
}

// ChangeEntry is one side of a change.
type ChangeEntry struct {
	Name string
	Hash Hash
	Size int64
}

// Changes is a list of changes.
type Changes []Change

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d.diff == nil {
		return
	}

	// Free errors are not actionable during cleanup.
	_ = d.diff.Free()
	d.diff = nil
}

// TreeDiff lists the file changes from oldTree to newTree. Either tree may be
// nil for the empty tree. Renames are not detected here; a moved file shows
// up as a Delete and an Insert.
func TreeDiff(repo *Repository, oldTree, newTree *Tree) (Changes, error) {
	if oldTree != nil && newTree != nil && oldTree.Hash() == newTree.Hash() {
		return Changes{}, nil
	}

	diff, err := repo.DiffTreeToTree(oldTree, newTree)
	if err != nil {
		return nil, err
	}
	defer diff.Free()

	numDeltas, err := diff.diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	changes := make(Changes, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		from := entryOf(delta.OldFile)
		to := entryOf(delta.NewFile)

		switch delta.Status {
		case git2go.DeltaAdded:
			changes = append(changes, Change{Action: Insert, To: to})
		case git2go.DeltaDeleted:
			changes = append(changes, Change{Action: Delete, From: from})
		case git2go.DeltaModified, git2go.DeltaTypeChange:
			changes = append(changes, Change{Action: Modify, From: from, To: to})
		case git2go.DeltaRenamed, git2go.DeltaCopied,
			git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
			git2go.DeltaUnreadable, git2go.DeltaConflicted:
			continue
		}
	}

	return changes, nil
}

func entryOf(file git2go.DiffFile) ChangeEntry {
	return ChangeEntry{
		Name: file.Path,
		Hash: HashFromOid(file.Oid),
		Size: int64(file.Size),
	}
}

// Inserted returns the changes that add a file.
func (c Changes) Inserted() []ChangeEntry {
	return c.side(Insert)
}

// Deleted returns the changes that remove a file.
func (c Changes) Deleted() []ChangeEntry {
	return c.side(Delete)
}

func (c Changes) side(action ChangeAction) []ChangeEntry {
	var out []ChangeEntry

	for _, change := range c {
		switch {
		case change.Action != action:
		case action == Insert:
			out = append(out, change.To)
		default:
			out = append(out, change.From)
		}
	}

	return out
}
