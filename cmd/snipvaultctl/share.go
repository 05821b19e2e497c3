package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/snipvault/snipvault/internal/server/models"
	"github.com/snipvault/snipvault/internal/server/services"
)

func newShareCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Create, revoke, and clean up share links",
	}
	cmd.AddCommand(
		newShareCreateCmd(opts),
		newShareRevokeCmd(opts),
		newShareCleanupCmd(opts),
	)
	return cmd
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newShareCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		resource    string
		owner       string
		shareType   string
		emails      []string
		domains     []string
		requireAuth bool
		askPassword bool
		maxViews    int
		expiresIn   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a share link and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := services.CreateShareParams{
				ResourceRef:           resource,
				ShareType:             models.ShareType(shareType),
				AllowedEmails:         emails,
				AllowedDomains:        domains,
				RequireAuthentication: requireAuth,
			}
			if maxViews > 0 {
				params.MaxViews = &maxViews
			}
			if expiresIn > 0 {
				at := time.Now().Add(expiresIn)
				params.ExpiresAt = &at
			}
			if askPassword {
				pw, err := promptPassword("Share password: ")
				if err != nil {
					return err
				}
				params.Password = pw
			}

			return withShareService(cmd.Context(), opts, func(svc *services.ShareService) error {
				link, token, err := svc.CreateShare(cmd.Context(), params, owner)
				if err != nil {
					return err
				}
				fmt.Printf("share id: %s\n", link.ID)
				fmt.Printf("token:    %s\n", token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&resource, "resource", "", "resource ref, e.g. snippet:<id>")
	cmd.Flags().StringVar(&owner, "owner", "", "owner user id")
	cmd.Flags().StringVar(&shareType, "type", string(models.ShareTypeView), "share type: view, edit, review")
	cmd.Flags().StringSliceVar(&emails, "email", nil, "allowlisted email (repeatable)")
	cmd.Flags().StringSliceVar(&domains, "domain", nil, "allowlisted email domain (repeatable)")
	cmd.Flags().BoolVar(&requireAuth, "require-auth", false, "require an authenticated requester")
	cmd.Flags().BoolVar(&askPassword, "password", false, "prompt for a share password")
	cmd.Flags().IntVar(&maxViews, "max-views", 0, "view budget, 0 for unlimited")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime, e.g. 24h, 0 for no expiry")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newShareRevokeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <share-id>",
		Short: "Revoke a share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShareService(cmd.Context(), opts, func(svc *services.ShareService) error {
				if err := svc.Revoke(cmd.Context(), args[0], "", true); err != nil {
					return err
				}
				fmt.Printf("revoked %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func newShareCleanupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Retire expired and exhausted share links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShareService(cmd.Context(), opts, func(svc *services.ShareService) error {
				n, err := svc.CleanupExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("retired %d share(s)\n", n)
				return nil
			})
		},
	}
	return cmd
}
