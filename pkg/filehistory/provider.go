package filehistory

// ChangeIndex returns per-commit change tables for a path.
type ChangeIndex interface {
	// AffectedCommits returns every commit whose table for path has at least
	// one edge that is not Unchanged, keyed by commit.
	AffectedCommits(path FilePath) CommitChanges
}

// RenameDetector finds renames on a single edge.
type RenameDetector interface {
	// FindRename looks for a rename on the edge from child to parent involving
	// path. isChildPath tells which side path belongs to: true means path was
	// added in child, false means it was removed from parent. The returned
	// Rename has Commit1 == parent and Commit2 == child.
	FindRename(parent, child int, path FilePath, isChildPath bool) (Rename, bool)
}

// IndexProvider is the capability the core needs from a history backend.
type IndexProvider interface {
	ChangeIndex
	RenameDetector
}
