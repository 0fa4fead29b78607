package gitindex

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/pathfollow/internal/cache"
	"github.com/Sumatoshi-tech/pathfollow/pkg/filehistory"
	"github.com/Sumatoshi-tech/pathfollow/pkg/gitlib"
	"github.com/Sumatoshi-tech/pathfollow/pkg/vcsgraph"
)

// Defaults for [Options].
const (
	DefaultSimilarityThreshold = 80
	DefaultDiffCacheEntries    = 256
	DefaultBlobCacheEntries    = 1024
	// DefaultBlobCacheBytes bounds the memory held by cached blob contents,
	// counted after compression.
	DefaultBlobCacheBytes = 64 << 20
)

// Options tunes an [Index]. Zero fields take the defaults.
type Options struct {
	// SimilarityThreshold is the minimum content similarity, in percent, for
	// an added and a removed file to count as a rename.
	SimilarityThreshold int
	DiffCacheEntries    int
	BlobCacheEntries    int
	Logger              *slog.Logger
}

type edge struct {
	parent, child int
}

// Index answers change and rename queries for the commits of a loaded graph.
// It implements [filehistory.IndexProvider].
type Index struct {
	repo      *gitlib.Repository
	graph     *vcsgraph.Graph
	commits   *CommitTable
	threshold int
	logger    *slog.Logger

	diffs *cache.LRU[edge, gitlib.Changes]
	blobs *cache.LRU[gitlib.Hash, packedBlob]
}

var _ filehistory.IndexProvider = (*Index)(nil)

// NewIndex creates an index over a graph loaded by [LoadGraph].
func NewIndex(repo *gitlib.Repository, graph *vcsgraph.Graph, commits *CommitTable, opts Options) *Index {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}

	if opts.DiffCacheEntries <= 0 {
		opts.DiffCacheEntries = DefaultDiffCacheEntries
	}

	if opts.BlobCacheEntries <= 0 {
		opts.BlobCacheEntries = DefaultBlobCacheEntries
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Index{
		repo:      repo,
		graph:     graph,
		commits:   commits,
		threshold: opts.SimilarityThreshold,
		logger:    opts.Logger,
		diffs:     cache.NewLRU[edge, gitlib.Changes](opts.DiffCacheEntries),
		blobs: cache.NewLRU(opts.BlobCacheEntries,
			cache.WithMaxBytes[gitlib.Hash](DefaultBlobCacheBytes, packedBlob.cost)),
	}
}

// CacheStats returns the statistics of the diff and blob caches.
func (x *Index) CacheStats() (diffs, blobs cache.Stats) {
	return x.diffs.Stats(), x.blobs.Stats()
}

type blobState struct {
	hash    gitlib.Hash
	present bool
}

// AffectedCommits compares the blob at path in every commit against each of
// its parents. Root commits are compared against the empty tree and keyed by
// themselves. A commit is reported when at least one edge is not unchanged;
// all of its edges are recorded then.
func (x *Index) AffectedCommits(path filehistory.FilePath) filehistory.CommitChanges {
	out := filehistory.CommitChanges{}
	if path.IsEmpty() {
		return out
	}

	states := make([]blobState, x.commits.Len())
	for id := range states {
		states[id] = x.blobAt(id, path.String())
	}

	for id, state := range states {
		table := filehistory.ChangeTable{}
		touched := false

		parents := x.graph.Parents(id)
		if len(parents) == 0 && state.present {
			table[id] = filehistory.Added
			touched = true
		}

		for _, parent := range parents {
			kind := changeKind(states[parent], state)
			table[parent] = kind
			touched = touched || kind != filehistory.Unchanged
		}

		if touched {
			out[id] = table
		}
	}

	return out
}

func changeKind(parent, child blobState) filehistory.ChangeKind {
	switch {
	case !parent.present && child.present:
		return filehistory.Added
	case parent.present && !child.present:
		return filehistory.Removed
	case parent.present && parent.hash != child.hash:
		return filehistory.Modified
	default:
		return filehistory.Unchanged
	}
}

func (x *Index) blobAt(id int, path string) blobState {
	tree, err := x.repo.LookupTree(x.commits.Info(id).TreeHash)
	if err != nil {
		x.logger.Warn("skipping unreadable tree", "commit", x.commits.Info(id).Hash.Short(), "error", err)

		return blobState{}
	}
	defer tree.Free()

	hash, ok := tree.BlobAt(path)

	return blobState{hash: hash, present: ok}
}

// FindRename looks on the edge from child to parent for the file on the other
// side of path. When isChildPath is set, path was added in child and the
// candidates are the files removed from parent; otherwise the other way
// round. An identical blob wins; else the most similar text at or above the
// threshold is chosen.
func (x *Index) FindRename(
	parent, child int, path filehistory.FilePath, isChildPath bool,
) (filehistory.Rename, bool) {
	changes, err := x.edgeChanges(parent, child)
	if err != nil {
		x.logger.Warn("rename detection skipped", "parent", parent, "child", child, "error", err)

		return filehistory.Rename{}, false
	}

	sources, candidates := changes.Deleted(), changes.Inserted()
	if isChildPath {
		sources, candidates = candidates, sources
	}

	source, ok := findEntry(sources, path.String())
	if !ok {
		return filehistory.Rename{}, false
	}

	match, ok := x.bestMatch(source, candidates)
	if !ok {
		return filehistory.Rename{}, false
	}

	other := filehistory.NewFilePath(match.Name)
	rename := filehistory.Rename{Path1: path, Path2: other, Commit1: parent, Commit2: child}

	if isChildPath {
		rename.Path1, rename.Path2 = other, path
	}

	return rename, true
}

func findEntry(entries []gitlib.ChangeEntry, name string) (gitlib.ChangeEntry, bool) {
	for _, entry := range entries {
		if entry.Name == name {
			return entry, true
		}
	}

	return gitlib.ChangeEntry{}, false
}

func (x *Index) bestMatch(source gitlib.ChangeEntry, candidates []gitlib.ChangeEntry) (gitlib.ChangeEntry, bool) {
	for _, candidate := range candidates {
		if candidate.Hash == source.Hash {
			return candidate, true
		}
	}

	sourceData, err := x.blob(source.Hash)
	if err != nil || isBinary(sourceData) {
		return gitlib.ChangeEntry{}, false
	}

	var (
		best      gitlib.ChangeEntry
		bestScore = -1
	)

	for _, candidate := range candidates {
		if !sizesCompatible(source.Size, candidate.Size, x.threshold) {
			continue
		}

		data, blobErr := x.blob(candidate.Hash)
		if blobErr != nil || isBinary(data) {
			continue
		}

		score := similarity(sourceData, data)
		if score >= x.threshold && score > bestScore {
			best, bestScore = candidate, score
		}
	}

	return best, bestScore >= 0
}

func (x *Index) edgeChanges(parent, child int) (gitlib.Changes, error) {
	return x.diffs.GetOrLoad(edge{parent: parent, child: child}, func() (gitlib.Changes, error) {
		oldTree, err := x.repo.LookupTree(x.commits.Info(parent).TreeHash)
		if err != nil {
			return nil, err
		}
		defer oldTree.Free()

		newTree, err := x.repo.LookupTree(x.commits.Info(child).TreeHash)
		if err != nil {
			return nil, err
		}
		defer newTree.Free()

		return gitlib.TreeDiff(x.repo, oldTree, newTree)
	})
}

func (x *Index) blob(hash gitlib.Hash) ([]byte, error) {
	packed, err := x.blobs.GetOrLoad(hash, func() (packedBlob, error) {
		blob, err := x.repo.LookupBlob(context.Background(), hash)
		if err != nil {
			return packedBlob{}, err
		}
		defer blob.Free()

		// packBlob copies, Contents points into libgit2 memory released by Free.
		return packBlob(blob.Contents()), nil
	})
	if err != nil {
		return nil, err
	}

	return packed.unpack()
}
