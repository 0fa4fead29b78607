package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pathfollow/internal/follow"
	"github.com/Sumatoshi-tech/pathfollow/internal/observability"
	"github.com/Sumatoshi-tech/pathfollow/pkg/filehistory"
)

const (
	logCmdUse   = "log <path>"
	logCmdShort = "Show the commits that changed a file, following renames"

	flagRepo       = "repo"
	flagRev        = "rev"
	flagStart      = "start"
	flagFormat     = "format"
	flagMaxCommits = "max-commits"
	flagNoCollapse = "no-collapse"
	flagSimilarity = "similarity"
	flagMetrics    = "metrics-file"
)

// ErrInvalidSimilarityFlag is returned when --similarity is outside 1..100.
var ErrInvalidSimilarityFlag = errors.New("--similarity must be between 1 and 100")

type logOptions struct {
	repo        string
	rev         string
	start       string
	format      string
	maxCommits  int
	noCollapse  bool
	similarity  int
	metricsFile string
}

func newLogCommand(global *globalOptions) *cobra.Command {
	opts := &logOptions{}

	cmd := &cobra.Command{
		Use:   logCmdUse,
		Short: logCmdShort,
		Long: `Show the commits that changed a file, newest first.

The file is identified by its path at the start commit (default: the newest
commit touching it). Renames and moves are followed backwards; commits that
reuse an old name for an unrelated file are left out, and merges that only
carry over one side's version of the file are collapsed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, global, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.repo, flagRepo, ".", "repository directory")
	flags.StringVar(&opts.rev, flagRev, "", "newest revision to consider (default: HEAD)")
	flags.StringVar(&opts.start, flagStart, "", "revision at which <path> names the file")
	flags.StringVarP(&opts.format, flagFormat, "f", FormatTable, "output format: table, yaml, json or html")
	flags.IntVar(&opts.maxCommits, flagMaxCommits, 0, "load at most N commits (0: all)")
	flags.BoolVar(&opts.noCollapse, flagNoCollapse, false, "keep merges that do not change the file")
	flags.IntVar(&opts.similarity, flagSimilarity, 0, "rename similarity threshold in percent (default from config)")
	flags.StringVar(&opts.metricsFile, flagMetrics, "", "write build metrics to this Prometheus textfile")

	return cmd
}

func runLog(cmd *cobra.Command, global *globalOptions, opts *logOptions, path string) error {
	renderer, err := NewRenderer(opts.format)
	if err != nil {
		return err
	}

	cfg, providers, err := global.setup(observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	req := follow.Request{
		RepoPath:            opts.repo,
		Path:                path,
		Rev:                 opts.rev,
		Start:               opts.start,
		MaxCommits:          cfg.Follow.MaxCommits,
		SimilarityThreshold: cfg.Follow.SimilarityThreshold,
		DiffCacheEntries:    cfg.Cache.DiffEntries,
		BlobCacheEntries:    cfg.Cache.BlobEntries,
		DisableCollapse:     opts.noCollapse || !cfg.Follow.CollapseMerges,
	}

	if cmd.Flags().Changed(flagMaxCommits) {
		req.MaxCommits = opts.maxCommits
	}

	if cmd.Flags().Changed(flagSimilarity) {
		if opts.similarity < 1 || opts.similarity > 100 {
			return fmt.Errorf("%w: got %d", ErrInvalidSimilarityFlag, opts.similarity)
		}

		req.SimilarityThreshold = opts.similarity
	}

	recorder, flush, err := buildRecorder(providers, opts.metricsFile)
	if err != nil {
		return err
	}

	service := follow.NewService(follow.Options{
		Logger:   providers.Logger,
		Tracer:   providers.Tracer,
		Recorder: recorder,
	})

	report, err := service.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	err = renderer.Render(cmd.OutOrStdout(), report, time.Now())
	if err != nil {
		return err
	}

	return flush()
}

// buildRecorder returns the build metrics recorder and a function that
// persists metrics once the command is done. With a metrics file the
// instruments go to a private Prometheus registry, otherwise to the global
// meter.
func buildRecorder(
	providers observability.Providers, metricsFile string,
) (filehistory.StatsRecorder, func() error, error) {
	if metricsFile == "" {
		recorder, err := observability.NewFollowMetrics(providers.Meter)
		if err != nil {
			return nil, nil, err
		}

		return recorder, func() error { return nil }, nil
	}

	exporter, err := observability.NewTextfileExporter()
	if err != nil {
		return nil, nil, err
	}

	recorder, err := observability.NewFollowMetrics(exporter.Meter())
	if err != nil {
		return nil, nil, err
	}

	flush := func() error {
		return errors.Join(exporter.WriteFile(metricsFile), exporter.Shutdown(context.Background()))
	}

	return recorder, flush, nil
}
