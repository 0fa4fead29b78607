package filehistory_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pathfollow/pkg/filehistory"
	"github.com/Sumatoshi-tech/pathfollow/pkg/vcsgraph"
)

type recorder struct {
	stats []filehistory.Stats
}

func (r *recorder) RecordBuild(_ context.Context, stats filehistory.Stats) {
	r.stats = append(r.stats, stats)
}

func follow(
	t *testing.T, repo *fakeRepo, path string, start int,
) (filehistory.Result, *vcsgraph.CollapsedGraph) {
	t.Helper()

	builder := filehistory.NewHistoryBuilder(repo.graph, repo, nil, filehistory.BuilderOptions{})

	return builder.Follow(context.Background(), filehistory.NewFilePath(path), start)
}

func TestFollow_LinearRename(t *testing.T) {
	t.Parallel()

	result, graph := follow(t, linearRename(), "renamed.txt", filehistory.NoCommit)

	assert.Equal(t, map[int]filehistory.FileIdentity{
		0: id("renamed.txt"),
		1: id("renamed.txt"),
		2: id("file.txt"),
		3: id("file.txt"),
	}, result.Paths)
	assert.Equal(t, 0, result.StartCommit)
	assert.Empty(t, result.Excluded)
	assert.Empty(t, result.Collapsed)
	assert.Equal(t, []int{0, 1, 2, 3}, result.Commits())
	assert.Equal(t, 4, graph.Len())
}

func TestFollow_Deletion(t *testing.T) {
	t.Parallel()

	// c5=0 deletes renamed.txt on top of the linear rename history.
	repo := newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{}},
		fakeCommit{parents: []int{2}, files: map[string]string{"renamed.txt": "v3"}},
		fakeCommit{parents: []int{3}, files: map[string]string{"renamed.txt": "v2"}},
		fakeCommit{parents: []int{4}, files: map[string]string{"file.txt": "v2"}},
		fakeCommit{files: map[string]string{"file.txt": "v1"}},
	).withRename(3, 2, "file.txt", "renamed.txt")

	result, _ := follow(t, repo, "renamed.txt", filehistory.NoCommit)

	assert.Equal(t, deleted("renamed.txt"), result.Paths[0])
	assert.Equal(t, id("renamed.txt"), result.Paths[1])
	assert.Equal(t, id("file.txt"), result.Paths[3])
	assert.Equal(t, id("file.txt"), result.Paths[4])
}

func TestFollow_DeletionWithoutRenames(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{}},
		fakeCommit{parents: []int{2}, files: map[string]string{"a.txt": "v2"}},
		fakeCommit{files: map[string]string{"a.txt": "v1"}},
	)

	result, _ := follow(t, repo, "a.txt", filehistory.NoCommit)

	assert.Equal(t, map[int]filehistory.FileIdentity{
		0: deleted("a.txt"),
		1: id("a.txt"),
		2: id("a.txt"),
	}, result.Paths)
}

func TestFollow_TrivialMergeCollapsed(t *testing.T) {
	t.Parallel()

	result, graph := follow(t, trivialMerge(), "a.txt", filehistory.NoCommit)

	assert.Equal(t, []int{1}, result.Collapsed)
	assert.NotContains(t, result.Paths, 1)
	assert.Len(t, result.Paths, 4)

	_, visible := graph.Row(1)
	assert.False(t, visible)

	child, _ := graph.Row(0)
	p2, _ := graph.Row(2)
	assert.Equal(t, []int{p2}, graph.Down(child))
}

func TestFollow_UnrelatedMergeKept(t *testing.T) {
	t.Parallel()

	result, graph := follow(t, unrelatedMerge("v5"), "a.txt", filehistory.NoCommit)

	assert.Empty(t, result.Collapsed)
	assert.Contains(t, result.Paths, 1)

	row, visible := graph.Row(1)
	require.True(t, visible)
	assert.Len(t, graph.Down(row), 2)
}

func TestFollow_MergeWithUntouchedSideCollapsed(t *testing.T) {
	t.Parallel()

	// p4 keeps the root content, so it is not part of the visible graph and
	// the merge's parents reduce to the chain p3 -> r.
	result, graph := follow(t, unrelatedMerge("v1"), "a.txt", filehistory.NoCommit)

	assert.Equal(t, []int{1}, result.Collapsed)

	child, _ := graph.Row(0)
	p3, _ := graph.Row(2)
	assert.Equal(t, []int{p3}, graph.Down(child))
}

func TestFollow_DisableCollapse(t *testing.T) {
	t.Parallel()

	repo := trivialMerge()
	builder := filehistory.NewHistoryBuilder(repo.graph, repo, nil, filehistory.BuilderOptions{DisableCollapse: true})

	result, graph := builder.Follow(context.Background(), "a.txt", filehistory.NoCommit)

	assert.Empty(t, result.Collapsed)
	assert.Len(t, result.Paths, 5)
	assert.Equal(t, 5, graph.Len())
}

func TestFollow_ExcludesUnrelatedReuseOfOldName(t *testing.T) {
	t.Parallel()

	// c1=3 adds file.txt, c2=2 renames it, c3=1 adds an unrelated file.txt,
	// c4=0 modifies renamed.txt.
	repo := newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{"renamed.txt": "v2", "file.txt": "other"}},
		fakeCommit{parents: []int{2}, files: map[string]string{"renamed.txt": "v1", "file.txt": "other"}},
		fakeCommit{parents: []int{3}, files: map[string]string{"renamed.txt": "v1"}},
		fakeCommit{files: map[string]string{"file.txt": "v1"}},
	).withRename(3, 2, "file.txt", "renamed.txt")

	result, graph := follow(t, repo, "renamed.txt", filehistory.NoCommit)

	assert.Equal(t, []int{1}, result.Excluded)
	assert.Equal(t, map[int]filehistory.FileIdentity{
		0: id("renamed.txt"),
		2: id("renamed.txt"),
		3: id("file.txt"),
	}, result.Paths)

	_, visible := graph.Row(1)
	assert.False(t, visible)

	top, _ := graph.Row(0)
	c2, _ := graph.Row(2)
	assert.Equal(t, []int{c2}, graph.Down(top))

	for commit, identity := range result.Paths {
		assert.True(t, result.Index.Affects(commit, identity), "commit %d", commit)
	}
}

func TestFollow_RenameTransitivity(t *testing.T) {
	t.Parallel()

	// a.txt -> b.txt at c2=2, b.txt -> c.txt at c3=1.
	repo := newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{"c.txt": "v2"}},
		fakeCommit{parents: []int{2}, files: map[string]string{"c.txt": "v1"}},
		fakeCommit{parents: []int{3}, files: map[string]string{"b.txt": "v1"}},
		fakeCommit{files: map[string]string{"a.txt": "v1"}},
	).
		withRename(3, 2, "a.txt", "b.txt").
		withRename(2, 1, "b.txt", "c.txt")

	result, _ := follow(t, repo, "c.txt", filehistory.NoCommit)

	assert.Equal(t, []filehistory.FilePath{"c.txt", "b.txt", "a.txt"}, result.Index.Paths())
	assert.Equal(t, id("a.txt"), result.Paths[3])
	assert.Equal(t, id("b.txt"), result.Paths[2])
	assert.Equal(t, id("c.txt"), result.Paths[1])
}

func TestFollow_FromStartCommit(t *testing.T) {
	t.Parallel()

	result, _ := follow(t, linearRename(), "renamed.txt", 1)

	assert.Equal(t, 1, result.StartCommit)
	assert.Equal(t, id("file.txt"), result.Paths[2])
	assert.Equal(t, id("renamed.txt"), result.Paths[0])
}

func TestFollow_StartCommitSkipsToAffectingAncestor(t *testing.T) {
	t.Parallel()

	// c=0 touches only other.txt; the walk has to start at its parent.
	repo := newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{"renamed.txt": "v2", "other.txt": "x"}},
		fakeCommit{parents: []int{2}, files: map[string]string{"renamed.txt": "v2"}},
		fakeCommit{parents: []int{3}, files: map[string]string{"renamed.txt": "v1"}},
		fakeCommit{files: map[string]string{"file.txt": "v1"}},
	).withRename(3, 2, "file.txt", "renamed.txt")

	result, _ := follow(t, repo, "renamed.txt", 0)

	assert.Equal(t, 1, result.StartCommit)
	assert.NotContains(t, result.Paths, 0)
	assert.Equal(t, id("file.txt"), result.Paths[3])
}

func TestFollow_UnknownStartCommit(t *testing.T) {
	t.Parallel()

	result, _ := follow(t, linearRename(), "renamed.txt", 42)

	assert.Empty(t, result.Paths)
	assert.Equal(t, filehistory.NoCommit, result.StartCommit)
}

func TestFollow_AmbiguousParentsResolvedStructurally(t *testing.T) {
	t.Parallel()

	// r=4 adds file.txt; p=2 renames it to renamed.txt; q=3 modifies
	// file.txt; m=1 merges p and q keeping the new name; c=0 modifies it.
	repo := newFakeRepo(
		fakeCommit{parents: []int{1}, files: map[string]string{"renamed.txt": "v3"}},
		fakeCommit{parents: []int{2, 3}, files: map[string]string{"renamed.txt": "v2"}},
		fakeCommit{parents: []int{4}, files: map[string]string{"renamed.txt": "v1"}},
		fakeCommit{parents: []int{4}, files: map[string]string{"file.txt": "v2"}},
		fakeCommit{files: map[string]string{"file.txt": "v1"}},
	).
		withRename(4, 2, "file.txt", "renamed.txt").
		withRename(3, 1, "file.txt", "renamed.txt")

	var logs bytes.Buffer

	builder := filehistory.NewHistoryBuilder(repo.graph, repo, nil, filehistory.BuilderOptions{
		Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	result, _ := builder.Follow(context.Background(), "renamed.txt", filehistory.NoCommit)

	assert.Equal(t, 1, result.AmbiguousResolutions)
	assert.Contains(t, logs.String(), "parents disagreed")
	assert.Equal(t, map[int]filehistory.FileIdentity{
		0: id("renamed.txt"),
		1: id("renamed.txt"),
		2: id("renamed.txt"),
		3: id("file.txt"),
		4: id("file.txt"),
	}, result.Paths)
}

func TestFollow_EmptyPath(t *testing.T) {
	t.Parallel()

	repo := linearRename()
	result, graph := follow(t, repo, "./", filehistory.NoCommit)

	assert.Empty(t, result.Paths)
	assert.Equal(t, 0, repo.affected)
	assert.Equal(t, 0, graph.Len())
}

func TestFollow_UntrackedPath(t *testing.T) {
	t.Parallel()

	result, _ := follow(t, linearRename(), "missing.txt", filehistory.NoCommit)

	assert.Empty(t, result.Paths)
	assert.True(t, result.Index.IsEmpty())
}

func TestBuild_RecordsStats(t *testing.T) {
	t.Parallel()

	repo := trivialMerge()
	rec := &recorder{}
	builder := filehistory.NewHistoryBuilder(repo.graph, repo, vcsgraph.NewFlags(repo.graph.Len()),
		filehistory.BuilderOptions{Recorder: rec})

	builder.Follow(context.Background(), "a.txt", filehistory.NoCommit)

	require.Len(t, rec.stats, 1)
	assert.Equal(t, 4, rec.stats[0].Commits)
	assert.Equal(t, 1, rec.stats[0].Collapsed)
	assert.Equal(t, 0, rec.stats[0].Renames)
}

func TestBuild_ReusesBuilder(t *testing.T) {
	t.Parallel()

	repo := linearRename()
	builder := filehistory.NewHistoryBuilder(repo.graph, repo, nil, filehistory.BuilderOptions{})

	first, _ := builder.Follow(context.Background(), "renamed.txt", filehistory.NoCommit)
	second, _ := builder.Follow(context.Background(), "renamed.txt", filehistory.NoCommit)

	assert.Equal(t, first.Paths, second.Paths)
}

func TestFollow_OldNameEndsAtRename(t *testing.T) {
	t.Parallel()

	result, _ := follow(t, linearRename(), "file.txt", filehistory.NoCommit)

	// Seen from the old name, the file is deleted by the rename commit and
	// the newest commit never touches it.
	assert.Equal(t, 1, result.StartCommit)
	assert.Equal(t, []int{0}, result.Excluded)
	assert.Equal(t, map[int]filehistory.FileIdentity{
		1: deleted("file.txt"),
		2: id("file.txt"),
		3: id("file.txt"),
	}, result.Paths)
}
