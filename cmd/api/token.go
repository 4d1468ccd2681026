package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

var tokenFlags struct {
	user  string
	email string
	tier  string
	ttl   time.Duration
}

// tokenCmd mints a bearer token with the configured secret, for local testing
// without the identity provider.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed development token",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := middleware.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		tok, err := auth.Issue(identity.Principal{
			UserID: tokenFlags.user,
			Email:  tokenFlags.email,
			Tier:   tier.Parse(tokenFlags.tier),
		}, tokenFlags.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenFlags.user, "user", "dev-user", "subject (user id)")
	f.StringVar(&tokenFlags.email, "email", "", "email claim")
	f.StringVar(&tokenFlags.tier, "tier", "free", "free | pro | elite")
	f.DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "token lifetime")
}
