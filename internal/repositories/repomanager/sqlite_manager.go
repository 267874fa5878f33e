package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
	"github.com/dmitrijs2005/pgpkeeper/internal/migrations"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/keys"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/metadata"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/pubkeys"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/recipients"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/users"
	"github.com/pressly/goose/v3"
)

// goose keeps its configuration in package globals.
var (
	gooseOnce sync.Once
	gooseErr  error
)

func setupGoose() error {
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.Migrations)
		goose.SetLogger(goose.NopLogger())
		gooseErr = goose.SetDialect("sqlite3")
	})
	return gooseErr
}

type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Recipients(db dbx.DBTX) recipients.Repository {
	return recipients.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) PubKeys(db dbx.DBTX) pubkeys.Repository {
	return pubkeys.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) SchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB, version int64) (int64, error) {
	before, err := m.SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	if before > version {
		return before, fmt.Errorf("schema version %d is newer than supported version %d", before, version)
	}
	if err := goose.UpToContext(ctx, db, ".", version); err != nil {
		return before, fmt.Errorf("failed to migrate schema to version %d: %w", version, err)
	}
	return before, nil
}
