package filehistory_test

import (
	"github.com/Sumatoshi-tech/pathfollow/pkg/filehistory"
	"github.com/Sumatoshi-tech/pathfollow/pkg/vcsgraph"
)

// fakeRepo is an in-memory history. Commits are numbered in log order, so a
// child always has a smaller id than its parents; each commit holds a snapshot
// of path -> content. Change tables are derived from the snapshots the way a
// real index would, renames are looked up from a fixed list.
type fakeRepo struct {
	graph    *vcsgraph.Graph
	files    []map[string]string
	renames  []filehistory.Rename
	affected int
	lookups  int
}

type fakeCommit struct {
	parents []int
	files   map[string]string
}

func newFakeRepo(commits ...fakeCommit) *fakeRepo {
	repo := &fakeRepo{graph: vcsgraph.NewGraph(len(commits))}

	for id, c := range commits {
		for _, parent := range c.parents {
			repo.graph.AddEdge(id, parent)
		}

		repo.files = append(repo.files, c.files)
	}

	return repo
}

func (r *fakeRepo) withRename(parent, child int, from, to string) *fakeRepo {
	r.renames = append(r.renames, filehistory.Rename{
		Path1:   filehistory.FilePath(from),
		Path2:   filehistory.FilePath(to),
		Commit1: parent,
		Commit2: child,
	})

	return r
}

func kindOf(inParent, inChild string, parentHas, childHas bool) filehistory.ChangeKind {
	switch {
	case !parentHas && childHas:
		return filehistory.Added
	case parentHas && !childHas:
		return filehistory.Removed
	case parentHas && inParent != inChild:
		return filehistory.Modified
	default:
		return filehistory.Unchanged
	}
}

func (r *fakeRepo) AffectedCommits(path filehistory.FilePath) filehistory.CommitChanges {
	r.affected++

	p := string(path)
	out := filehistory.CommitChanges{}

	for commit, files := range r.files {
		content, has := files[p]
		table := filehistory.ChangeTable{}
		touched := false

		parents := r.graph.Parents(commit)
		if len(parents) == 0 && has {
			table[commit] = filehistory.Added
			touched = true
		}

		for _, parent := range parents {
			parentContent, parentHas := r.files[parent][p]

			kind := kindOf(parentContent, content, parentHas, has)
			table[parent] = kind
			touched = touched || kind != filehistory.Unchanged
		}

		if touched {
			out[commit] = table
		}
	}

	return out
}

func (r *fakeRepo) FindRename(parent, child int, path filehistory.FilePath, isChildPath bool) (filehistory.Rename, bool) {
	r.lookups++

	for _, rename := range r.renames {
		if rename.Commit1 != parent || rename.Commit2 != child {
			continue
		}

		if (isChildPath && rename.Path2 == path) || (!isChildPath && rename.Path1 == path) {
			return rename, true
		}
	}

	return filehistory.Rename{}, false
}

func id(path string) filehistory.FileIdentity {
	return filehistory.FileIdentity{Path: filehistory.FilePath(path)}
}

func deleted(path string) filehistory.FileIdentity {
	return filehistory.FileIdentity{Path: filehistory.FilePath(path), Deleted: true}
}

// linearRename: file.txt is added, modified, renamed to renamed.txt and
// modified again. Ids: c4=0, c3=1, c2=2, c1=3.
func linearRename() *fakeRepo {
	return newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{"renamed.txt": "v3"}},
		fakeCommit{parents: []int{2}, files: map[string]string{"renamed.txt": "v2"}},
		fakeCommit{parents: []int{3}, files: map[string]string{"file.txt": "v2"}},
		fakeCommit{files: map[string]string{"file.txt": "v1"}},
	).withRename(2, 1, "file.txt", "renamed.txt")
}

// trivialMerge: m=1 merges p2=2 and p1=3, where p1 is an ancestor of p2 and m
// keeps p2's content. c=0 is a child of m.
func trivialMerge() *fakeRepo {
	return newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{"a.txt": "v4"}},
		fakeCommit{parents: []int{2, 3}, files: map[string]string{"a.txt": "v3"}},
		fakeCommit{parents: []int{3}, files: map[string]string{"a.txt": "v3"}},
		fakeCommit{parents: []int{4}, files: map[string]string{"a.txt": "v2"}},
		fakeCommit{files: map[string]string{"a.txt": "v1"}},
	)
}

// unrelatedMerge: m2=1 merges p3=2 and p4=3, two branches off r=4, both of
// which modify the file.
func unrelatedMerge(p4Content string) *fakeRepo {
	return newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{"a.txt": "v4"}},
		fakeCommit{parents: []int{2, 3}, files: map[string]string{"a.txt": "v2"}},
		fakeCommit{parents: []int{4}, files: map[string]string{"a.txt": "v2"}},
		fakeCommit{parents: []int{4}, files: map[string]string{"a.txt": p4Content}},
		fakeCommit{files: map[string]string{"a.txt": "v1"}},
	)
}

// ancestorsOf returns the permanent nodes reachable by parent edges from node
// in the collapsed graph.
func ancestorsOf(g *vcsgraph.CollapsedGraph, node int) map[int]bool {
	row, ok := g.Row(node)
	if !ok {
		return nil
	}

	seen := map[int]bool{}
	stack := []int{row}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, parent := range g.Down(current) {
			if !seen[g.NodeID(parent)] {
				seen[g.NodeID(parent)] = true
				stack = append(stack, parent)
			}
		}
	}

	return seen
}
