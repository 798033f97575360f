package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"intakeflow/internal/config"
	"intakeflow/internal/pkg/jwt"
)

var tokenOpts struct {
	actor string
	role  string
	ttl   time.Duration
}

var tokenCMD = &cobra.Command{
	Use:   "token",
	Short: "issue an API token",
	Long:  `Sign a bearer token for an actor with JWT_SECRET, for scripts and local testing.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenOpts.actor == "" {
			return fmt.Errorf("--actor is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		token, err := jwt.New(cfg.Auth.JWTSecret, tokenOpts.ttl).GenerateToken(tokenOpts.actor, tokenOpts.role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCMD.Flags().StringVar(&tokenOpts.actor, "actor", "", "actor id placed in the token")
	tokenCMD.Flags().StringVar(&tokenOpts.role, "role", "member", "role claim")
	tokenCMD.Flags().DurationVar(&tokenOpts.ttl, "ttl", 24*time.Hour, "token lifetime")
	rootCMD.AddCommand(tokenCMD)
}
