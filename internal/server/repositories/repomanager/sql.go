// Package repomanager wires repository constructors to a SQL database and
// runs the embedded goose migrations. The repositories use portable SQL,
// so the same manager serves PostgreSQL (pgx) for multi-instance
// deployments and SQLite (modernc) for single-node ones; only the driver
// and goose dialect differ.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/snipvault/snipvault/internal/dbx"
	"github.com/snipvault/snipvault/internal/server/migrations"
	"github.com/snipvault/snipvault/internal/server/repositories/buckets"
	"github.com/snipvault/snipvault/internal/server/repositories/shares"
	"github.com/snipvault/snipvault/internal/server/repositories/snippets"
)

// SQLRepositoryManager implements RepositoryManager for one SQL dialect.
type SQLRepositoryManager struct {
	dialect string
}

// NewPostgresRepositoryManager returns a manager for pgx-backed PostgreSQL.
func NewPostgresRepositoryManager() *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: "pgx"}
}

// NewSQLiteRepositoryManager returns a manager for modernc SQLite.
func NewSQLiteRepositoryManager() *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: "sqlite3"}
}

func (m *SQLRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Snippets(db dbx.DBTX) snippets.Repository {
	return snippets.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Buckets(db dbx.DBTX) *buckets.SQLRepository {
	return buckets.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// Open connects to the database named by dsn, picking the driver from the
// DSN scheme: postgres:// and postgresql:// use pgx, anything else is
// treated as a SQLite path.
func Open(dsn string) (*sql.DB, RepositoryManager, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("db open error: %w", err)
		}
		return db, NewPostgresRepositoryManager(), nil
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	return db, NewSQLiteRepositoryManager(), nil
}
