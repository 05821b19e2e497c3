package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/logging"
	"github.com/snipvault/snipvault/internal/server/repositories/repomanager"
	"github.com/snipvault/snipvault/internal/server/services"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	dsn string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "snipvaultctl",
		Short: "Snipvaultctl administers shares and tokens directly against the database",
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&opts.dsn, "db", "snipvault.db", "PostgreSQL DSN or SQLite file path")

	cmd.AddCommand(
		newShareCmd(opts),
		newTokenCmd(),
	)

	return cmd
}

// noResources satisfies the share service's resource collaborator for admin
// commands, which never resolve content.
type noResources struct{}

func (noResources) Lookup(context.Context, string) (*services.Resource, error) {
	return nil, common.ErrorNotFound
}

// withShareService opens the database, runs migrations, and hands a wired
// share service to fn, closing the database afterwards.
func withShareService(ctx context.Context, opts *rootOptions, fn func(*services.ShareService) error) error {
	db, rm, err := repomanager.Open(opts.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return fn(services.NewShareService(rm.Shares(db), noResources{}, logger))
}
