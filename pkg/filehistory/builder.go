package filehistory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/pathfollow/pkg/vcsgraph"
)

// NoCommit asks [HistoryBuilder.Build] to start from the newest commit that
// touches the path.
const NoCommit = vcsgraph.NoNode

// Span names.
const (
	spanBuild    = "filehistory.build"
	spanIndex    = "filehistory.index"
	spanRefine   = "filehistory.refine"
	spanCollapse = "filehistory.collapse"
)

// Stats summarizes one build for metrics.
type Stats struct {
	Commits   int
	Excluded  int
	Collapsed int
	Renames   int
	Ambiguous int
	Duration  time.Duration
}

// StatsRecorder receives build statistics.
type StatsRecorder interface {
	RecordBuild(ctx context.Context, stats Stats)
}

// BuilderOptions configures a [HistoryBuilder]. Zero values are usable.
type BuilderOptions struct {
	Logger          *slog.Logger
	Tracer          trace.Tracer
	Recorder        StatsRecorder
	DisableCollapse bool
}

// Result is the outcome of one history query.
type Result struct {
	// Paths maps every remaining commit to the identity of the file there.
	Paths map[int]FileIdentity
	// Index is the identity index the result was built from.
	Index *FileIdentityIndex
	// StartCommit is the commit the refiner walk started from, or NoCommit.
	StartCommit int
	// Excluded lists commits hidden because they do not affect their identity.
	Excluded []int
	// Collapsed lists trivial merges hidden from the graph.
	Collapsed []int
	// AmbiguousResolutions counts identity steps decided structurally because
	// parents disagreed.
	AmbiguousResolutions int
}

// Commits returns the commits of the result in log order.
func (r Result) Commits() []int {
	return slices.Sorted(maps.Keys(r.Paths))
}

// HistoryBuilder computes the history of one file over a commit graph.
// A builder owns its scratch buffer; it must not run two builds at once.
type HistoryBuilder struct {
	permanent *vcsgraph.Graph
	provider  IndexProvider
	scratch   *vcsgraph.Flags
	opts      BuilderOptions
}

// NewHistoryBuilder creates a builder over permanent. scratch is the walk
// buffer; when nil or smaller than the graph a fresh one is allocated.
func NewHistoryBuilder(
	permanent *vcsgraph.Graph, provider IndexProvider, scratch *vcsgraph.Flags, opts BuilderOptions,
) *HistoryBuilder {
	if scratch == nil || scratch.Len() < permanent.Len() {
		scratch = vcsgraph.NewFlags(permanent.Len())
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("filehistory")
	}

	return &HistoryBuilder{
		permanent: permanent,
		provider:  provider,
		scratch:   scratch,
		opts:      opts,
	}
}

// Index builds the identity index for path.
func (b *HistoryBuilder) Index(ctx context.Context, path FilePath) *FileIdentityIndex {
	_, span := b.opts.Tracer.Start(ctx, spanIndex, trace.WithAttributes(attribute.String("path", path.String())))
	defer span.End()

	idx := BuildIndex(b.provider, path)

	span.SetAttributes(
		attribute.Int("paths", len(idx.paths)),
		attribute.Int("renames", idx.nRenames),
	)

	return idx
}

// VisibleGraph returns the view of the permanent graph restricted to commits
// touching any indexed path.
func (b *HistoryBuilder) VisibleGraph(index *FileIdentityIndex) *vcsgraph.CollapsedGraph {
	return vcsgraph.NewCollapsedGraph(b.permanent, index.Touches)
}

// Follow indexes path, builds its visible graph and runs [HistoryBuilder.Build].
func (b *HistoryBuilder) Follow(ctx context.Context, path FilePath, start int) (Result, *vcsgraph.CollapsedGraph) {
	index := b.Index(ctx, path)
	graph := b.VisibleGraph(index)

	return b.Build(ctx, graph, index, start), graph
}

// Build assigns identities to the commits of graph and simplifies graph in
// place. With renames, the walk starts at the nearest ancestor of start that
// touches the start path, and commits that turn out not to affect their
// identity are hidden. Without renames, identities come straight from the
// change tables. Trivial merges are collapsed last.
func (b *HistoryBuilder) Build(
	ctx context.Context, graph *vcsgraph.CollapsedGraph, index *FileIdentityIndex, start int,
) Result {
	began := time.Now()

	ctx, span := b.opts.Tracer.Start(ctx, spanBuild, trace.WithAttributes(
		attribute.String("path", index.StartPath().String()),
		attribute.Int("start", start),
	))
	defer span.End()

	result := Result{Index: index, StartCommit: NoCommit}

	switch {
	case index.IsEmpty():
		result.Paths = map[int]FileIdentity{}
	case index.HasRenames():
		b.refine(ctx, graph, index, start, &result)
	default:
		result.Paths = index.BuildPathsMap()
	}

	if !b.opts.DisableCollapse && len(result.Paths) > 0 {
		b.collapse(ctx, graph, index, &result)
	}

	stats := Stats{
		Commits:   len(result.Paths),
		Excluded:  len(result.Excluded),
		Collapsed: len(result.Collapsed),
		Renames:   index.nRenames,
		Ambiguous: result.AmbiguousResolutions,
		Duration:  time.Since(began),
	}

	span.SetAttributes(
		attribute.Int("commits", stats.Commits),
		attribute.Int("excluded", stats.Excluded),
		attribute.Int("collapsed", stats.Collapsed),
	)

	if b.opts.Recorder != nil {
		b.opts.Recorder.RecordBuild(ctx, stats)
	}

	return result
}

func (b *HistoryBuilder) refine(
	ctx context.Context, graph *vcsgraph.CollapsedGraph, index *FileIdentityIndex, start int, result *Result,
) {
	_, span := b.opts.Tracer.Start(ctx, spanRefine)
	defer span.End()

	row, id, ok := b.locateStart(graph, index, start)
	if !ok {
		b.opts.Logger.DebugContext(ctx, "no commit touches the path from the start commit",
			"path", index.StartPath(), "start", start)

		result.Paths = map[int]FileIdentity{}

		return
	}

	result.StartCommit = graph.NodeID(row)

	refinement := NewGraphRefiner(graph, index, b.scratch).Refine(row, id)
	result.Paths = refinement.Paths
	result.AmbiguousResolutions = refinement.Ambiguous

	if refinement.Ambiguous > 0 {
		b.opts.Logger.DebugContext(ctx, "parents disagreed on file identity",
			"path", index.StartPath(), "resolutions", refinement.Ambiguous)
	}

	if len(refinement.Excluded) == 0 {
		return
	}

	if err := hideExcluded(graph, refinement.Excluded); err != nil {
		b.opts.Logger.WarnContext(ctx, "keeping commits that do not affect the file",
			"path", index.StartPath(), "commits", len(refinement.Excluded), "error", err)

		return
	}

	result.Excluded = refinement.Excluded
}

// locateStart finds the row the walk starts from and the identity there.
func (b *HistoryBuilder) locateStart(
	graph *vcsgraph.CollapsedGraph, index *FileIdentityIndex, start int,
) (int, FileIdentity, bool) {
	path := index.StartPath()

	identityAt := func(node int) (FileIdentity, bool) {
		for _, id := range []FileIdentity{{Path: path}, {Path: path, Deleted: true}} {
			if index.Affects(node, id) {
				return id, true
			}
		}

		return FileIdentity{}, false
	}

	if start == NoCommit {
		for row := range graph.Len() {
			if id, ok := identityAt(graph.NodeID(row)); ok {
				return row, id, true
			}
		}

		return 0, FileIdentity{}, false
	}

	if !b.permanent.Contains(start) {
		return 0, FileIdentity{}, false
	}

	var (
		row   int
		id    FileIdentity
		found bool
	)

	vcsgraph.WalkAncestors(b.permanent, start, b.scratch, func(node int) bool {
		candidate, ok := identityAt(node)
		if !ok {
			return true
		}

		visibleRow, visible := graph.Row(node)
		if !visible {
			return true
		}

		row, id, found = visibleRow, candidate, true

		return false
	})

	return row, id, found
}

// hideExcluded hides nodes in one edit, linking the children of each hidden
// node to its parents.
func hideExcluded(graph *vcsgraph.CollapsedGraph, nodes []int) error {
	return graph.Modify(func(e *vcsgraph.Edit) error {
		for _, node := range nodes {
			row, ok := graph.Row(node)
			if !ok {
				return fmt.Errorf("%w: commit %d is not visible", vcsgraph.ErrStructuralInconsistency, node)
			}

			parents := slices.Clone(e.Down(row))
			children := slices.Clone(e.Up(row))

			if err := e.HideRow(row); err != nil {
				return err
			}

			for _, child := range children {
				for _, parent := range parents {
					if err := e.ConnectRows(child, parent); err != nil {
						return err
					}
				}
			}
		}

		return nil
	})
}

func (b *HistoryBuilder) collapse(
	ctx context.Context, graph *vcsgraph.CollapsedGraph, index *FileIdentityIndex, result *Result,
) {
	_, span := b.opts.Tracer.Start(ctx, spanCollapse)
	defer span.End()

	collapsed, err := NewMergeCollapser(graph, b.scratch).Collapse(func(node int) bool {
		id, ok := result.Paths[node]

		return ok && index.IsTrivialMerge(node, id.Path)
	})
	if err != nil {
		b.opts.Logger.WarnContext(ctx, "trivial merges left in place", "error", err)

		return
	}

	for _, node := range collapsed {
		delete(result.Paths, node)
	}

	result.Collapsed = collapsed

	span.SetAttributes(attribute.Int("collapsed", len(collapsed)))
}
