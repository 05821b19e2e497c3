package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/snipvault/snipvault/internal/ratelimit"
	"github.com/snipvault/snipvault/internal/server/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue access tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		userID   string
		email    string
		tier     string
		secret   string
		validity time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := auth.Identity{
				UserID: userID,
				Email:  email,
				Tier:   ratelimit.Tier(tier),
			}
			token, err := auth.GenerateToken(id, []byte(secret), validity)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&tier, "tier", string(ratelimit.TierFree), "tier: free, pro, enterprise")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT HMAC secret")
	cmd.Flags().DurationVar(&validity, "validity", 15*time.Minute, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}
