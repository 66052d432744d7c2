package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"klunkaz/pkg/config"
	"klunkaz/pkg/identity"
	"klunkaz/pkg/registry"
)

var (
	tokenIdentity string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Development bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Print a token for --identity signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if tokenIdentity == "" {
			return errors.New("--identity is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		issuer, err := identity.NewIssuer(cfg.Auth.JWTSecret)
		if err != nil {
			return err
		}
		token, err := issuer.Issue(registry.Identity(tokenIdentity), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenIdentity, "identity", "", "identity to put in the sub claim")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.AddCommand(tokenIssueCmd)
}
