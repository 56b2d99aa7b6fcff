package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gdugdh24/swipematch/internal/infrastructure/container"
	"github.com/spf13/cobra"
)

// MatchesOptions holds flags for the matches command.
type MatchesOptions struct {
	*RootOptions
	Limit  int
	Offset int
}

// NewMatchesCommand creates the matches command.
func NewMatchesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "matches <user>",
		Short: "List a user's matches, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listMatches(opts, cmd, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of matches")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of matches to skip")

	return cmd
}

func listMatches(opts *MatchesOptions, cmd *cobra.Command, arg string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	user, err := parseUserID(arg)
	if err != nil {
		return err
	}
	if opts.Limit <= 0 || opts.Offset < 0 {
		return WrapExitError(ExitCommandError, "limit must be positive and offset non-negative", nil)
	}

	return opts.withCore(cmd, func(ctx context.Context, core *container.Core) error {
		matches, err := core.Repos.Matches.GetUserMatches(ctx, user, opts.Limit, opts.Offset)
		if err != nil {
			return out.Error(WrapExitError(ExitFailure, "failed to list matches", err))
		}
		return out.Success(matches, func(w io.Writer) {
			if len(matches) == 0 {
				fmt.Fprintln(w, "no matches")
				return
			}
			for _, m := range matches {
				other, _ := m.GetOtherUserID(user)
				fmt.Fprintf(w, "%s  with %s  %s\n", m.ID, other, m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
			}
		})
	})
}
