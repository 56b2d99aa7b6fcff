package cli

import (
	"fmt"
	"io"

	"github.com/gdugdh24/swipematch/internal/infrastructure/container"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema",
		Long: `Create or upgrade the store schema.

SQL drivers apply every embedded migration not yet recorded in schema_migrations.
The dynamodb driver creates the table and its index when missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd)
		},
	}
}

func runMigrate(opts *RootOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := opts.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	repos, err := container.OpenRepositories(cmd.Context(), cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer repos.Close()

	applied, err := repos.Migrate(cmd.Context())
	if err != nil {
		return out.Error(WrapExitError(ExitFailure, "migration failed", err))
	}
	if applied == nil {
		applied = []string{}
	}

	return out.Success(map[string]any{"driver": cfg.Database.Driver, "applied": applied}, func(w io.Writer) {
		if len(applied) == 0 {
			fmt.Fprintln(w, "schema is up to date")
			return
		}
		for _, name := range applied {
			fmt.Fprintf(w, "applied %s\n", name)
		}
	})
}
