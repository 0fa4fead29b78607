// Package gitindex backs the file history core with a git repository: it
// loads the commit graph and answers change and rename queries from trees.
package gitindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/pathfollow/pkg/gitlib"
	"github.com/Sumatoshi-tech/pathfollow/pkg/vcsgraph"
)

// DefaultRevision is the revision loaded when none is given.
const DefaultRevision = "HEAD"

// ErrUnknownRevision is returned when the requested revision does not resolve.
var ErrUnknownRevision = errors.New("unknown revision")

// errWindowFull stops the walk once MaxCommits commits are loaded.
var errWindowFull = errors.New("commit window full")

// LoadOptions selects the commits to load.
type LoadOptions struct {
	// Rev is the newest commit of the graph. Empty means HEAD.
	Rev string
	// MaxCommits bounds the number of loaded commits. Zero loads all.
	MaxCommits int
}

// CommitInfo holds the commit metadata needed to answer queries and print logs.
type CommitInfo struct {
	Hash     gitlib.Hash
	TreeHash gitlib.Hash
	Author   string
	Email    string
	When     time.Time
	Summary  string
}

// CommitTable maps graph node ids to commits.
type CommitTable struct {
	ids   *vcsgraph.Interner[gitlib.Hash]
	infos []CommitInfo
}

// Len returns the number of commits.
func (t *CommitTable) Len() int {
	return len(t.infos)
}

// Info returns the metadata of node id.
func (t *CommitTable) Info(id int) CommitInfo {
	return t.infos[id]
}

// ID returns the node id of hash, if loaded.
func (t *CommitTable) ID(hash gitlib.Hash) (int, bool) {
	return t.ids.Lookup(hash)
}

// LoadGraph walks the history reachable from opts.Rev, newest first in
// topological order, and numbers commits in walk order so every child gets a
// smaller id than its parents. Edges to parents outside the loaded window are
// dropped, which turns boundary commits into roots.
func LoadGraph(
	ctx context.Context, repo *gitlib.Repository, opts LoadOptions,
) (*vcsgraph.Graph, *CommitTable, error) {
	rev := opts.Rev
	if rev == "" {
		rev = DefaultRevision
	}

	head, err := repo.ResolveRevision(rev)
	if err != nil {
		return nil, nil, fmt.Errorf("%w %q: %w", ErrUnknownRevision, rev, err)
	}

	walk, err := repo.Walk()
	if err != nil {
		return nil, nil, err
	}
	defer walk.Free()

	if err = walk.Push(head); err != nil {
		return nil, nil, err
	}

	table := &CommitTable{ids: vcsgraph.NewInterner[gitlib.Hash]()}

	var parents [][]gitlib.Hash

	err = walk.ForEach(func(commit *gitlib.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if opts.MaxCommits > 0 && table.Len() >= opts.MaxCommits {
			return errWindowFull
		}

		author := commit.Author()
		table.ids.Intern(commit.Hash())
		table.infos = append(table.infos, CommitInfo{
			Hash:     commit.Hash(),
			TreeHash: commit.TreeHash(),
			Author:   author.Name,
			Email:    author.Email,
			When:     author.When,
			Summary:  commit.Summary(),
		})

		hashes := make([]gitlib.Hash, commit.NumParents())
		for i := range hashes {
			hashes[i] = commit.ParentHash(i)
		}

		parents = append(parents, hashes)

		return nil
	})
	if err != nil && !errors.Is(err, errWindowFull) {
		return nil, nil, fmt.Errorf("walk history: %w", err)
	}

	graph := vcsgraph.NewGraph(table.Len())

	for child, hashes := range parents {
		for _, hash := range hashes {
			if parent, ok := table.ID(hash); ok {
				graph.AddEdge(child, parent)
			}
		}
	}

	if err = graph.Validate(); err != nil {
		return nil, nil, fmt.Errorf("load graph: %w", err)
	}

	return graph, table, nil
}
