// Package cli holds the newsrelay commands.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"NewsRelay/internal/app"
	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/usecase"
)

// Runtime is what the commands need from the wired application.
type Runtime interface {
	RunOnce(ctx context.Context, opts usecase.InvokeOptions) (domain.RunResult, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.RunLog, error)
	Serve(ctx context.Context) error
	Close() error
}

// Factory builds a Runtime from configuration.
type Factory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Runtime, error)

// DefaultFactory wires the real application.
func DefaultFactory(ctx context.Context, cfg config.Config, logger *slog.Logger) (Runtime, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewRootCommand assembles the command tree around factory.
func NewRootCommand(factory Factory) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "newsrelay",
		Short: "Acquire, deduplicate and publish one news article per run",
		Long: `newsrelay walks a priority-ordered chain of news sources, publishes the first
article that is not a duplicate and paces itself with a global lock, cooldown
and daily quota.

Examples:
  newsrelay run                 # one gated invocation
  newsrelay run --force         # ignore start time, cooldown and quota
  newsrelay run --dry-run       # evaluate without writing anything
  newsrelay serve               # cron schedule plus HTTP trigger API
  newsrelay runs --limit 10     # recent run log`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	open := func(cmd *cobra.Command) (Runtime, error) {
		cfg := config.Load()
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)
		return factory(cmd.Context(), cfg, logger)
	}

	root.AddCommand(newRunCommand(open), newServeCommand(open), newRunsCommand(open))
	return root
}

type opener func(cmd *cobra.Command) (Runtime, error)
