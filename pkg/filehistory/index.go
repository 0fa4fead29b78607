package filehistory

import (
	"maps"
	"slices"
)

// FileIdentityIndex holds the change tables of every path the tracked file was
// known under, together with the renames linking those paths. It is built once
// per query by [BuildIndex] and is read-only afterwards.
type FileIdentityIndex struct {
	start    FilePath
	paths    []FilePath
	changes  map[FilePath]CommitChanges
	byCommit map[int]map[FilePath]ChangeTable
	renames  map[edgeKey][]Rename
	nRenames int
}

func newFileIdentityIndex(start FilePath) *FileIdentityIndex {
	return &FileIdentityIndex{
		start:    start,
		changes:  make(map[FilePath]CommitChanges),
		byCommit: make(map[int]map[FilePath]ChangeTable),
		renames:  make(map[edgeKey][]Rename),
	}
}

// BuildIndex discovers the paths linked to start by renames. Starting from
// start, each newly found path has its change table fetched; every addition or
// deletion in it that no recorded rename explains is offered to the detector,
// and the path on the other side of a found rename is indexed next. The loop
// ends when no new path turns up. An empty start yields an empty index.
func BuildIndex(provider IndexProvider, start FilePath) *FileIdentityIndex {
	idx := newFileIdentityIndex(start)
	if start.IsEmpty() {
		return idx
	}

	queued := map[FilePath]bool{start: true}
	frontier := []FilePath{start}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		idx.add(current, provider.AffectedCommits(current))

		for _, seed := range seeds(current, idx.changes[current]) {
			if idx.explained(seed) {
				continue
			}

			rename, ok := provider.FindRename(seed.Parent, seed.Child, seed.Path, seed.IsAddition)
			if !ok || !validRename(seed, rename) {
				continue
			}

			idx.addRename(rename)

			other, _ := rename.Other(seed.commitWithPath())
			if !queued[other] {
				queued[other] = true
				frontier = append(frontier, other)
			}
		}
	}

	return idx
}

func seeds(p FilePath, changes CommitChanges) []AdditionDeletion {
	var out []AdditionDeletion

	for _, commit := range slices.Sorted(maps.Keys(changes)) {
		table := changes[commit]

		for _, parent := range slices.Sorted(maps.Keys(table)) {
			kind := table[parent]
			if parent == commit || (kind != Added && kind != Removed) {
				continue
			}

			out = append(out, AdditionDeletion{
				Path:       p,
				Child:      commit,
				Parent:     parent,
				IsAddition: kind == Added,
			})
		}
	}

	return out
}

func validRename(seed AdditionDeletion, r Rename) bool {
	if r.Commit1 != seed.Parent || r.Commit2 != seed.Child {
		return false
	}

	if r.Path1.IsEmpty() || r.Path2.IsEmpty() || r.Path1 == r.Path2 {
		return false
	}

	if seed.IsAddition {
		return r.Path2 == seed.Path
	}

	return r.Path1 == seed.Path
}

func (idx *FileIdentityIndex) add(p FilePath, changes CommitChanges) {
	idx.paths = append(idx.paths, p)

	own := make(CommitChanges, len(changes))

	for commit, table := range changes {
		if len(table) == 0 {
			continue
		}

		table = maps.Clone(table)
		own[commit] = table

		perPath := idx.byCommit[commit]
		if perPath == nil {
			perPath = make(map[FilePath]ChangeTable)
			idx.byCommit[commit] = perPath
		}

		perPath[p] = table
	}

	idx.changes[p] = own
}

func (idx *FileIdentityIndex) explained(seed AdditionDeletion) bool {
	for _, r := range idx.renames[newEdgeKey(seed.Child, seed.Parent)] {
		if seed.matches(r) {
			return true
		}
	}

	return false
}

func (idx *FileIdentityIndex) addRename(r Rename) {
	key := r.edge()
	if slices.Contains(idx.renames[key], r) {
		return
	}

	idx.renames[key] = append(idx.renames[key], r)
	idx.nRenames++
}

// StartPath returns the path the index was built for.
func (idx *FileIdentityIndex) StartPath() FilePath {
	return idx.start
}

// IsEmpty reports whether no commit touches any indexed path.
func (idx *FileIdentityIndex) IsEmpty() bool {
	return len(idx.byCommit) == 0
}

// HasRenames reports whether at least one rename was found.
func (idx *FileIdentityIndex) HasRenames() bool {
	return idx.nRenames > 0
}

// Paths returns the indexed paths in discovery order, start path first.
func (idx *FileIdentityIndex) Paths() []FilePath {
	return slices.Clone(idx.paths)
}

// Renames returns every detected rename, ordered by edge.
func (idx *FileIdentityIndex) Renames() []Rename {
	keys := slices.SortedFunc(maps.Keys(idx.renames), func(a, b edgeKey) int {
		if a.lo != b.lo {
			return a.lo - b.lo
		}

		return a.hi - b.hi
	})

	out := make([]Rename, 0, idx.nRenames)
	for _, key := range keys {
		out = append(out, idx.renames[key]...)
	}

	return out
}

// Touches reports whether commit changes any indexed path.
func (idx *FileIdentityIndex) Touches(commit int) bool {
	_, ok := idx.byCommit[commit]

	return ok
}

// Commits returns the commits touching any indexed path, ascending.
func (idx *FileIdentityIndex) Commits() []int {
	return slices.Sorted(maps.Keys(idx.byCommit))
}

// Changes returns the change table of path at commit, or nil.
func (idx *FileIdentityIndex) Changes(commit int, p FilePath) ChangeTable {
	return idx.byCommit[commit][p]
}

// Affects reports whether commit changes the file as identified by id: the
// table of id.Path at commit is not empty, and it contains a removal exactly
// when id is deleted.
func (idx *FileIdentityIndex) Affects(commit int, id FileIdentity) bool {
	table := idx.byCommit[commit][id.Path]
	if len(table) == 0 {
		return false
	}

	return id.Deleted == table.Contains(Removed)
}

func (idx *FileIdentityIndex) renameAt(commit, other int, p FilePath) (FilePath, bool) {
	for _, r := range idx.renames[newEdgeKey(commit, other)] {
		if at, _ := r.PathAt(commit); at == p {
			return r.Other(commit)
		}
	}

	return "", false
}

// PathInParent resolves the identity the file has in parent, given its
// identity child at commit. A rename on the edge wins over the change kind.
func (idx *FileIdentityIndex) PathInParent(commit, parent int, child FileIdentity) FileIdentity {
	if renamed, ok := idx.renameAt(commit, parent, child.Path); ok {
		return FileIdentity{Path: renamed}
	}

	kind, ok := idx.byCommit[commit][child.Path][parent]
	if !ok {
		return child
	}

	switch kind {
	case Added:
		return FileIdentity{Path: child.Path, Deleted: true}
	case Removed, Modified:
		return FileIdentity{Path: child.Path}
	default:
		return child
	}
}

// PathInChild resolves the identity the file has at commit, given its
// identity inParent at parent.
func (idx *FileIdentityIndex) PathInChild(commit, parent int, inParent FileIdentity) FileIdentity {
	if renamed, ok := idx.renameAt(parent, commit, inParent.Path); ok {
		return FileIdentity{Path: renamed}
	}

	kind, ok := idx.byCommit[commit][inParent.Path][parent]
	if !ok {
		return inParent
	}

	switch kind {
	case Removed:
		return FileIdentity{Path: inParent.Path, Deleted: true}
	case Added, Modified:
		return FileIdentity{Path: inParent.Path}
	default:
		return inParent
	}
}

// IsTrivialMerge reports whether commit is a merge whose table for p has an
// unchanged edge, i.e. one side brings in nothing for the file.
func (idx *FileIdentityIndex) IsTrivialMerge(commit int, p FilePath) bool {
	table := idx.byCommit[commit][p]

	return len(table) > 1 && table.Contains(Unchanged)
}

// BuildPathsMap assigns identities straight from the change tables, for
// histories without renames. A commit keeps the start path when it touches it
// and otherwise the smallest path it touches; it is deleted when any of its
// edges removes that path.
func (idx *FileIdentityIndex) BuildPathsMap() map[int]FileIdentity {
	out := make(map[int]FileIdentity, len(idx.byCommit))

	for commit, perPath := range idx.byCommit {
		p := idx.start
		if _, ok := perPath[p]; !ok {
			p = slices.Min(slices.Collect(maps.Keys(perPath)))
		}

		out[commit] = FileIdentity{Path: p, Deleted: perPath[p].Contains(Removed)}
	}

	return out
}
