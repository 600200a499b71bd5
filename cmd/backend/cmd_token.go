package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	configpkg "github.com/stormhead-org/threads/internal/config"
	jwtpkg "github.com/stormhead-org/threads/internal/jwt"
)

var (
	tokenUser  string
	tokenAdmin bool
	tokenTTL   time.Duration
)

var tokenCommand = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for local testing",
	Long:  "Prints a signed access token for --user. Requires JWT_SECRET, or DEBUG=1 for the development secret.",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configpkg.Load()
		if err != nil {
			return err
		}

		userID := uuid.New()
		if tokenUser != "" {
			userID, err = uuid.Parse(tokenUser)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
		}

		role := ""
		if tokenAdmin {
			role = jwtpkg.RoleAdmin
		}

		token, err := jwtpkg.NewJWT(config.JWTSecret).GenerateAccessToken(userID, role, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCommand.Flags().StringVar(&tokenUser, "user", "", "user id (random when empty)")
	tokenCommand.Flags().BoolVar(&tokenAdmin, "admin", false, "grant the admin role")
	tokenCommand.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	rootCommand.AddCommand(tokenCommand)
}
