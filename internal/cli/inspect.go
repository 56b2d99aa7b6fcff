package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/infrastructure/container"
	"github.com/spf13/cobra"
)

// PairReport is the inspect command's view of a pair.
type PairReport struct {
	Outgoing  *domain.Edge  `json:"outgoing"`
	Incoming  *domain.Edge  `json:"incoming"`
	Connected bool          `json:"connected"`
	Match     *domain.Match `json:"match,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <user> <other-user>",
		Short: "Show both edges of a pair and its match record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectPair(rootOpts, cmd, args)
		},
	}
}

func inspectPair(opts *RootOptions, cmd *cobra.Command, args []string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	user, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	other, err := parseUserID(args[1])
	if err != nil {
		return err
	}

	return opts.withCore(cmd, func(ctx context.Context, core *container.Core) error {
		state, err := core.Engine.PairState(ctx, user, other)
		if err != nil {
			return out.Error(WrapExitError(ExitFailure, "failed to read pair", err))
		}
		report := PairReport{Outgoing: state.Outgoing, Incoming: state.Incoming, Connected: state.Connected()}

		m, err := core.Repos.Matches.GetByUsers(ctx, user, other)
		switch {
		case err == nil:
			report.Match = m
		case !errors.Is(err, domain.ErrMatchNotFound):
			return out.Error(WrapExitError(ExitFailure, "failed to read match", err))
		}

		return out.Success(report, func(w io.Writer) {
			fmt.Fprintf(w, "%s -> %s: %s\n", user, other, formatEdge(report.Outgoing))
			fmt.Fprintf(w, "%s -> %s: %s\n", other, user, formatEdge(report.Incoming))
			if report.Match != nil {
				fmt.Fprintf(w, "match %s since %s\n", report.Match.ID, report.Match.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
			}
		})
	})
}
