// Package cli implements matchctl, the operator tool for the matching store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/gdugdh24/swipematch/internal/config"
	"github.com/gdugdh24/swipematch/internal/infrastructure/container"
	"github.com/gdugdh24/swipematch/internal/infrastructure/logger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	LoadConfig func() (*config.Config, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for matchctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(config.Load)
}

func newRootCommand(load func() (*config.Config, error)) *cobra.Command {
	opts := &RootOptions{LoadConfig: load}

	cmd := &cobra.Command{
		Use:   "matchctl",
		Short: "Inspect and drive the swipematch store",
		Long: `matchctl talks to the same store as the API server, configured through the same
environment variables. Interest actions go through the matching engine, so every
invariant the server keeps holds for them too.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedUserCommand(opts))
	cmd.AddCommand(NewInterestCommand(opts))
	cmd.AddCommand(NewDisinterestCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewMatchesCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// logger writes diagnostics to stderr, and only with --verbose.
func (o *RootOptions) logger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.New(&config.LoggingConfig{Level: "debug", Format: cfg.Logging.Format}, cmd.ErrOrStderr())
}

// withCore loads configuration, builds the engine and closes everything after fn.
func (o *RootOptions) withCore(cmd *cobra.Command, fn func(ctx context.Context, core *container.Core) error) (err error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	core, err := container.NewCore(ctx, cfg, o.logger(cmd, cfg))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := core.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, core)
}
