// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command tokengen signs access tokens for calling the author endpoints
// during local development.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/risyyz/ABCD-sub000/internal/platform/constants"
	"github.com/risyyz/ABCD-sub000/internal/platform/sec"
)

type options struct {
	privateKeyPath string
	publicKeyPath  string
	userID         string
	username       string
	role           string
	ttl            time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Sign an RS256 access token for the blog API",
		Long: `Sign an access token with the private key the API's public key pairs with.

Examples:
  # Author token valid for the default TTL
  tokengen --user u-1 --name alice --role author

  # Admin token valid for one hour
  tokengen --user u-2 --name root --role admin --ttl 1h`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.privateKeyPath, "private-key", os.Getenv("JWT_PRIVATE_KEY_PATH"), "path to the RSA private key (PEM)")
	flags.StringVar(&opts.publicKeyPath, "public-key", os.Getenv("JWT_PUBLIC_KEY_PATH"), "path to the RSA public key (PEM)")
	flags.StringVar(&opts.userID, "user", "", "user id placed in the token")
	flags.StringVar(&opts.username, "name", "", "display name placed in the token")
	flags.StringVar(&opts.role, "role", string(sec.RoleAuthor), "role: admin, moderator, author or member")
	flags.DurationVar(&opts.ttl, "ttl", constants.DefaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	switch sec.UserRole(opts.role) {
	case sec.RoleAdmin, sec.RoleModerator, sec.RoleAuthor, sec.RoleMember:
	default:
		return fmt.Errorf("unknown role %q", opts.role)
	}
	if opts.ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", opts.ttl)
	}

	service, err := sec.NewTokenService(opts.privateKeyPath, opts.publicKeyPath, constants.AuthIssuer)
	if err != nil {
		return err
	}

	token, err := service.GenerateAccessToken(opts.userID, opts.username, opts.role, opts.ttl)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
