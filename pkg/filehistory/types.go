// Package filehistory follows a file through a commit graph across renames.
//
// Given a start path and an [IndexProvider], a [FileIdentityIndex] discovers
// every path the file was known under. A [GraphRefiner] then assigns each
// commit of the visible graph the identity the tracked file has there, and a
// [MergeCollapser] hides merges that bring no change to it. [HistoryBuilder]
// runs the three steps for one query.
package filehistory

import (
	"path"
	"strings"
)

// FilePath is a repository-relative, slash-separated, cleaned file path.
type FilePath string

// NewFilePath normalizes p. Backslashes become slashes, the path is cleaned,
// and leading "./" and "/" are dropped. The repository root normalizes to the
// empty path.
func NewFilePath(p string) FilePath {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return ""
	}

	p = strings.TrimLeft(path.Clean("/"+p), "/")

	return FilePath(p)
}

// IsEmpty reports whether the path names nothing.
func (p FilePath) IsEmpty() bool {
	return p == ""
}

func (p FilePath) String() string {
	return string(p)
}

// FileIdentity is the view a commit has of the tracked file: the path it
// lives under and whether it is deleted there.
type FileIdentity struct {
	Path    FilePath
	Deleted bool
}

func (id FileIdentity) String() string {
	if id.Deleted {
		return string(id.Path) + " (deleted)"
	}

	return string(id.Path)
}

// ChangeKind classifies what happened to a path across one child -> parent edge.
type ChangeKind int

// Change kinds.
const (
	Unchanged ChangeKind = iota
	Modified
	Added
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// ChangeTable maps a parent commit to the change on the edge from the commit
// to that parent. A root commit is recorded with itself as the parent.
type ChangeTable map[int]ChangeKind

// Contains reports whether any edge has kind.
func (t ChangeTable) Contains(kind ChangeKind) bool {
	for _, k := range t {
		if k == kind {
			return true
		}
	}

	return false
}

// CommitChanges maps a commit to its change table for one path.
type CommitChanges map[int]ChangeTable

// Rename links Path1 at Commit1 and Path2 at Commit2 as one logical file.
// Commit1 and Commit2 are the two ends of one edge, in either order.
type Rename struct {
	Path1   FilePath
	Path2   FilePath
	Commit1 int
	Commit2 int
}

// PathAt returns the path the file has at commit, if commit is an end of the rename.
func (r Rename) PathAt(commit int) (FilePath, bool) {
	switch commit {
	case r.Commit1:
		return r.Path1, true
	case r.Commit2:
		return r.Path2, true
	default:
		return "", false
	}
}

// Other returns the path at the opposite end from commit.
func (r Rename) Other(commit int) (FilePath, bool) {
	switch commit {
	case r.Commit1:
		return r.Path2, true
	case r.Commit2:
		return r.Path1, true
	default:
		return "", false
	}
}

func (r Rename) edge() edgeKey {
	return newEdgeKey(r.Commit1, r.Commit2)
}

// edgeKey is an unordered commit pair.
type edgeKey struct {
	lo, hi int
}

func newEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}

	return edgeKey{lo: a, hi: b}
}

// AdditionDeletion is a rename seed: Path was added (or removed) on the edge
// from Child to Parent.
type AdditionDeletion struct {
	Path       FilePath
	Child      int
	Parent     int
	IsAddition bool
}

// commitWithPath returns the commit on whose side of the edge Path exists.
func (ad AdditionDeletion) commitWithPath() int {
	if ad.IsAddition {
		return ad.Child
	}

	return ad.Parent
}

// matches reports whether r already explains the seed.
func (ad AdditionDeletion) matches(r Rename) bool {
	if newEdgeKey(ad.Child, ad.Parent) != r.edge() {
		return false
	}

	p, ok := r.PathAt(ad.commitWithPath())

	return ok && p == ad.Path
}
