package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/scenesync/internal/dbx"
	"github.com/dmitrijs2005/scenesync/internal/server/repositories/scenes"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Scenes(db dbx.DBTX) scenes.Repository
}
