// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/server/migrations"
	"github.com/dmitrijs2005/selva/internal/server/repositories/baseprofiles"
	"github.com/dmitrijs2005/selva/internal/server/repositories/externalprofiles"
	"github.com/dmitrijs2005/selva/internal/server/repositories/files"
	"github.com/dmitrijs2005/selva/internal/server/repositories/integrations"
	"github.com/dmitrijs2005/selva/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// BaseProfiles returns a baseprofiles.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) BaseProfiles(db dbx.DBTX) baseprofiles.Repository {
	return baseprofiles.NewPostgresRepository(db)
}

// ExternalProfiles returns an externalprofiles.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) ExternalProfiles(db dbx.DBTX) externalprofiles.Repository {
	return externalprofiles.NewPostgresRepository(db)
}

// Integrations returns an integrations.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Integrations(db dbx.DBTX) integrations.Repository {
	return integrations.NewPostgresRepository(db)
}

// Files returns a files.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
