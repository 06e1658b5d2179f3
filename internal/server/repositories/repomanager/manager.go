package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/server/repositories/baseprofiles"
	"github.com/dmitrijs2005/selva/internal/server/repositories/externalprofiles"
	"github.com/dmitrijs2005/selva/internal/server/repositories/files"
	"github.com/dmitrijs2005/selva/internal/server/repositories/integrations"
	"github.com/dmitrijs2005/selva/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	BaseProfiles(db dbx.DBTX) baseprofiles.Repository
	ExternalProfiles(db dbx.DBTX) externalprofiles.Repository
	Integrations(db dbx.DBTX) integrations.Repository
	Files(db dbx.DBTX) files.Repository
}
