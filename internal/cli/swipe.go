package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gdugdh24/swipematch/internal/infrastructure/container"
	"github.com/gdugdh24/swipematch/internal/usecase/match"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewInterestCommand creates the interest command.
func NewInterestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "interest <from-user> <to-user>",
		Short: "Record that one user likes another",
		Long: `Record that one user likes another.

When the other user already likes them back the pair is connected and a match is
created. Running the command again reports the existing state without changing it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordAction(rootOpts, cmd, args, (*match.Engine).RecordInterest)
		},
	}
}

// NewDisinterestCommand creates the disinterest command.
func NewDisinterestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disinterest <from-user> <to-user>",
		Short: "Record that one user passes on another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordAction(rootOpts, cmd, args, (*match.Engine).RecordDisinterest)
		},
	}
}

type engineAction func(e *match.Engine, ctx context.Context, from, to uuid.UUID) (*match.Result, error)

func recordAction(opts *RootOptions, cmd *cobra.Command, args []string, action engineAction) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	from, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	to, err := parseUserID(args[1])
	if err != nil {
		return err
	}

	return opts.withCore(cmd, func(ctx context.Context, core *container.Core) error {
		res, err := action(core.Engine, ctx, from, to)
		if err != nil {
			return out.Error(WrapExitError(ExitFailure, "action failed", err))
		}
		return out.Success(res, func(w io.Writer) {
			fmt.Fprintf(w, "outcome: %s\n", res.Outcome)
			fmt.Fprintf(w, "edge:    %s\n", formatEdge(res.Edge))
			if res.Match != nil {
				fmt.Fprintf(w, "match:   %s\n", res.Match.ID)
			}
		})
	})
}
