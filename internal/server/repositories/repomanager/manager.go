package repomanager

import (
	"context"
	"database/sql"

	"github.com/snipvault/snipvault/internal/dbx"
	"github.com/snipvault/snipvault/internal/server/repositories/buckets"
	"github.com/snipvault/snipvault/internal/server/repositories/shares"
	"github.com/snipvault/snipvault/internal/server/repositories/snippets"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run several repositories inside one dbx.WithTx transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Shares(db dbx.DBTX) shares.Repository
	Snippets(db dbx.DBTX) snippets.Repository
	Buckets(db dbx.DBTX) *buckets.SQLRepository
}
