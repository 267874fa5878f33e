package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, name).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read metadata %q: %w", name, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, name string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, name, value)
	if err != nil {
		return fmt.Errorf("failed to write metadata %q: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) KeyCheck(ctx context.Context) ([]byte, error) {
	return r.Get(ctx, KeyCheckName)
}

func (r *SQLiteRepository) SetKeyCheck(ctx context.Context, verifier []byte) error {
	if len(verifier) == 0 {
		return errors.New("empty key verifier")
	}
	return r.Set(ctx, KeyCheckName, verifier)
}
