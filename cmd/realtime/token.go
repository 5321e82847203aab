package main

import (
	"fmt"
	"time"

	"github.com/interestconnect/realtime/pkg/jwt"
	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Print a signed token for a user id",
		Long:  "Token mints an HS256 token with the configured secret, for local testing of the websocket endpoint.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			manager, err := jwt.NewManager(cfg.Auth.JWTSecret, ttl, cfg.Auth.Issuer)
			if err != nil {
				return err
			}
			token, err := manager.Generate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	return cmd
}
