package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pathfollow/internal/follow"
	"github.com/Sumatoshi-tech/pathfollow/internal/mcp"
	"github.com/Sumatoshi-tech/pathfollow/internal/observability"
)

func newMCPCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes one tool:
  - pathfollow_log: rename-aware history of a file in a Git repository`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, providers, err := global.setup(observability.ModeMCP, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			recorder, err := observability.NewFollowMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
				Follow: follow.NewService(follow.Options{
					Logger:   providers.Logger,
					Tracer:   providers.Tracer,
					Recorder: recorder,
				}),
				Defaults: follow.Request{
					MaxCommits:          cfg.Follow.MaxCommits,
					SimilarityThreshold: cfg.Follow.SimilarityThreshold,
					DiffCacheEntries:    cfg.Cache.DiffEntries,
					BlobCacheEntries:    cfg.Cache.BlobEntries,
					DisableCollapse:     !cfg.Follow.CollapseMerges,
				},
			})

			return srv.Run(cmd.Context())
		},
	}
}
