package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/infrastructure/container"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// SeedUserOptions holds flags for the seed-user command.
type SeedUserOptions struct {
	*RootOptions
	ID        string
	Name      string
	Bio       string
	City      string
	Interests []string
}

// NewSeedUserCommand creates the seed-user command.
func NewSeedUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedUserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Register a user profile so it can swipe and be swiped",
		Long: `Register a user profile so it can swipe and be swiped.

Example:
  matchctl seed-user --name Alice --city Yakutsk --interests hiking,jazz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedUser(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "user id (random when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Bio, "bio", "", "short bio")
	cmd.Flags().StringVar(&opts.City, "city", "", "city")
	cmd.Flags().StringSliceVar(&opts.Interests, "interests", nil, "comma separated interests")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func seedUser(opts *SeedUserOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	id := uuid.New()
	if opts.ID != "" {
		parsed, err := parseUserID(opts.ID)
		if err != nil {
			return err
		}
		id = parsed
	}

	profile := &domain.Profile{
		UserID:               id,
		DisplayName:          opts.Name,
		Bio:                  optional(opts.Bio),
		City:                 optional(opts.City),
		Interests:            opts.Interests,
		IsOnboardingComplete: true,
	}

	return opts.withCore(cmd, func(ctx context.Context, core *container.Core) error {
		if err := core.Repos.Profiles.Create(ctx, profile); err != nil {
			return out.Error(WrapExitError(ExitFailure, "failed to create profile", err))
		}
		return out.Success(profile, func(w io.Writer) {
			fmt.Fprintf(w, "created %s (%s)\n", profile.UserID, profile.DisplayName)
		})
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
