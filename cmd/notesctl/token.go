package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studynotes/api/internal/auth"
	"studynotes/api/internal/config"
)

var (
	tokenName   string
	tokenEmail  string
	tokenSecret string
	tokenTTL    time.Duration
)

// tokenCmd mints a bearer token for local development against the API.
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a development bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenTTL <= 0 {
			return errors.New("--ttl must be positive")
		}
		secret := tokenSecret
		if secret == "" {
			secret = config.Load().JWTSecret
		}
		token, err := auth.IssueToken([]byte(secret), auth.Claims{
			Sub:   args[0],
			Name:  tokenName,
			Email: tokenEmail,
			Exp:   time.Now().Add(tokenTTL).Unix(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret (default STUDYNOTES_JWT_SECRET)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
