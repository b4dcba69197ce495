package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ghuser/lostfound/pkg/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		name   string
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("--user must be a UUID: %w", err)
				}
				id = parsed
			}
			if role != string(auth.RoleUser) && role != string(auth.RoleAdmin) {
				return fmt.Errorf("--role must be %q or %q", auth.RoleUser, auth.RoleAdmin)
			}
			if secret == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				secret = cfg.JWTSecret
			}

			tok, err := auth.GenerateToken(secret, auth.Principal{UserID: id, Role: auth.Role(role), Name: name}, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (random when empty)")
	cmd.Flags().StringVarP(&role, "role", "r", string(auth.RoleUser), "user or admin")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (defaults to JWT_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")
	return cmd
}
