// Package follow answers "history of this file" queries against a git
// repository. It glues the git adapter to the file history core and turns
// the result into printable entries. The CLI and the MCP server share it.
package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/pathfollow/pkg/filehistory"
	"github.com/Sumatoshi-tech/pathfollow/pkg/gitindex"
	"github.com/Sumatoshi-tech/pathfollow/pkg/gitlib"
)

const spanLoad = "follow.load"

// Sentinel request errors.
var (
	// ErrEmptyPath is returned when no file path is given.
	ErrEmptyPath = errors.New("file path is empty")
	// ErrStartOutsideWindow is returned when the start commit is not among
	// the loaded commits.
	ErrStartOutsideWindow = errors.New("start commit is not in the loaded history")
)

// Request describes one history query.
type Request struct {
	// RepoPath is the repository directory.
	RepoPath string
	// Path is the file to follow, relative to the repository root.
	Path string
	// Rev is the newest commit considered. Empty means HEAD.
	Rev string
	// Start is the commit the file is identified at. Empty means the newest
	// commit touching Path.
	Start string
	// MaxCommits bounds the loaded history. Zero loads everything.
	MaxCommits int
	// SimilarityThreshold is the rename similarity percentage. Zero uses the default.
	SimilarityThreshold int
	// DiffCacheEntries and BlobCacheEntries size the git adapter caches.
	DiffCacheEntries int
	BlobCacheEntries int
	// DisableCollapse keeps trivial merges.
	DisableCollapse bool
}

// Entry is one commit of a file's history.
type Entry struct {
	Hash    string    `json:"hash"              yaml:"hash"`
	Parents []string  `json:"parents,omitempty" yaml:"parents,omitempty"`
	Author  string    `json:"author"            yaml:"author"`
	Email   string    `json:"email"             yaml:"email"`
	When    time.Time `json:"when"              yaml:"when"`
	Summary string    `json:"summary"           yaml:"summary"`
	Path    string    `json:"path"              yaml:"path"`
	Deleted bool      `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// RenameEntry records a rename that is part of the followed history.
type RenameEntry struct {
	Commit string `json:"commit" yaml:"commit"`
	From   string `json:"from"   yaml:"from"`
	To     string `json:"to"     yaml:"to"`
}

// Summary holds the counters of one query.
type Summary struct {
	Commits              int `json:"commits"               yaml:"commits"`
	Excluded             int `json:"excluded"              yaml:"excluded"`
	Collapsed            int `json:"collapsed"             yaml:"collapsed"`
	AmbiguousResolutions int `json:"ambiguous_resolutions" yaml:"ambiguous_resolutions"`
	LoadedCommits        int `json:"loaded_commits"        yaml:"loaded_commits"`
}

// Report is the answer to a [Request].
type Report struct {
	Path    string        `json:"path"              yaml:"path"`
	Entries []Entry       `json:"entries"           yaml:"entries"`
	Renames []RenameEntry `json:"renames,omitempty" yaml:"renames,omitempty"`
	Summary Summary       `json:"summary"           yaml:"summary"`
}

// Options configures a [Service]. Zero values are usable.
type Options struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Recorder filehistory.StatsRecorder
}

// Service runs history queries.
type Service struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder filehistory.StatsRecorder
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("follow")
	}

	return &Service{logger: opts.Logger, tracer: opts.Tracer, recorder: opts.Recorder}
}

// Run loads the repository history and follows req.Path through it.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	path := filehistory.NewFilePath(req.Path)
	if path.IsEmpty() {
		return nil, ErrEmptyPath
	}

	repo, err := gitlib.OpenRepository(req.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	defer repo.Free()

	graphCtx, span := s.tracer.Start(ctx, spanLoad, trace.WithAttributes(
		attribute.String("rev", req.Rev),
		attribute.Int("max_commits", req.MaxCommits),
	))

	graph, commits, err := gitindex.LoadGraph(graphCtx, repo, gitindex.LoadOptions{
		Rev:        req.Rev,
		MaxCommits: req.MaxCommits,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()

		return nil, err
	}

	span.SetAttributes(attribute.Int("commits", commits.Len()))
	span.End()

	start, err := s.startCommit(repo, commits, req.Start)
	if err != nil {
		return nil, err
	}

	index := gitindex.NewIndex(repo, graph, commits, gitindex.Options{
		SimilarityThreshold: req.SimilarityThreshold,
		DiffCacheEntries:    req.DiffCacheEntries,
		BlobCacheEntries:    req.BlobCacheEntries,
		Logger:              s.logger,
	})

	builder := filehistory.NewHistoryBuilder(graph, index, nil, filehistory.BuilderOptions{
		Logger:          s.logger,
		Tracer:          s.tracer,
		Recorder:        s.recorder,
		DisableCollapse: req.DisableCollapse,
	})

	result, visible := builder.Follow(ctx, path, start)

	diffs, blobs := index.CacheStats()
	s.logger.DebugContext(ctx, "history built",
		"path", path.String(),
		"commits", len(result.Paths),
		"diff_cache_hit_rate", diffs.HitRate(),
		"blob_cache_hit_rate", blobs.HitRate(),
	)

	report := &Report{
		Path:    path.String(),
		Entries: []Entry{},
		Summary: Summary{
			Commits:              len(result.Paths),
			Excluded:             len(result.Excluded),
			Collapsed:            len(result.Collapsed),
			AmbiguousResolutions: result.AmbiguousResolutions,
			LoadedCommits:        commits.Len(),
		},
	}

	for _, id := range result.Commits() {
		info := commits.Info(id)
		identity := result.Paths[id]

		entry := Entry{
			Hash:    info.Hash.String(),
			Author:  info.Author,
			Email:   info.Email,
			When:    info.When,
			Summary: info.Summary,
			Path:    identity.Path.String(),
			Deleted: identity.Deleted,
		}

		if row, ok := visible.Row(id); ok {
			for _, parentRow := range visible.Down(row) {
				entry.Parents = append(entry.Parents, commits.Info(visible.NodeID(parentRow)).Hash.String())
			}
		}

		report.Entries = append(report.Entries, entry)
	}

	for _, rename := range result.Index.Renames() {
		if _, kept := result.Paths[rename.Commit2]; !kept {
			continue
		}

		report.Renames = append(report.Renames, RenameEntry{
			Commit: commits.Info(rename.Commit2).Hash.String(),
			From:   rename.Path1.String(),
			To:     rename.Path2.String(),
		})
	}

	return report, nil
}

func (s *Service) startCommit(repo *gitlib.Repository, commits *gitindex.CommitTable, rev string) (int, error) {
	if rev == "" {
		return filehistory.NoCommit, nil
	}

	hash, err := repo.ResolveRevision(rev)
	if err != nil {
		return filehistory.NoCommit, fmt.Errorf("%w %q: %w", gitindex.ErrUnknownRevision, rev, err)
	}

	id, ok := commits.ID(hash)
	if !ok {
		return filehistory.NoCommit, fmt.Errorf("%w: %s", ErrStartOutsideWindow, hash.Short())
	}

	return id, nil
}
