// Package repomanager hands out table repositories bound to a DBTX and runs
// the schema migrations of the encrypted store.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/keys"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/metadata"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/pubkeys"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/recipients"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/users"
)

type RepositoryManager interface {
	// RunMigrations brings the schema to version and returns the version
	// found before migrating (0 for a new database).
	RunMigrations(ctx context.Context, db *sql.DB, version int64) (before int64, err error)
	SchemaVersion(ctx context.Context, db *sql.DB) (int64, error)

	Keys(db dbx.DBTX) keys.Repository
	Recipients(db dbx.DBTX) recipients.Repository
	PubKeys(db dbx.DBTX) pubkeys.Repository
	Users(db dbx.DBTX) users.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}
