package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/gdugdh24/swipematch/internal/usecase/auth"
	"github.com/spf13/cobra"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	TTL time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Mint an API access token for a user",
		Long: `Mint an API access token for a user, signed with JWT_ACCESS_SECRET.

Example:
  curl -H "Authorization: Bearer $(matchctl token <user>)" localhost:8080/api/v1/matches`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mintToken(opts, cmd, args[0])
		},
	}

	cmd.Flags().DurationVar(&opts.TTL, "ttl", auth.DefaultTokenTTL, "token lifetime")

	return cmd
}

func mintToken(opts *TokenOptions, cmd *cobra.Command, arg string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	user, err := parseUserID(arg)
	if err != nil {
		return err
	}
	cfg, err := opts.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.JWT.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "cannot sign tokens", err)
	}

	token, expiresAt, err := auth.NewTokenService(cfg.JWT.AccessSecret, opts.TTL).Issue(user)
	if err != nil {
		return out.Error(WrapExitError(ExitFailure, "failed to sign token", err))
	}

	return out.Success(map[string]any{"token": token, "expires_at": expiresAt}, func(w io.Writer) {
		fmt.Fprintln(w, token)
	})
}
