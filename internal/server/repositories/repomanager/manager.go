package repomanager

import (
	"context"
	"database/sql"

	"github.com/penlight/penlight/internal/dbx"
	"github.com/penlight/penlight/internal/server/repositories/files"
	"github.com/penlight/penlight/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX
// (either the shared pool or a transaction handle) and exposes a schema
// migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
}
