// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tarkovtracker/internal/auth"
	"github.com/tomtom215/tarkovtracker/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Sign a bearer token for local testing",
		Long: "Token signs an HS256 token with JWT_SECRET, JWT_ISSUER and JWT_AUDIENCE " +
			"from the environment, matching what the server verifies.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sec := config.SecurityConfig{
				JWTSecret:   os.Getenv("JWT_SECRET"),
				JWTIssuer:   os.Getenv("JWT_ISSUER"),
				JWTAudience: os.Getenv("JWT_AUDIENCE"),
			}
			manager, err := auth.NewJWTManager(&sec)
			if err != nil {
				return err
			}
			tok, err := manager.GenerateToken(args[0], role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&role, "role", "authenticated", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
