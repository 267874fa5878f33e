package keys

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, k *models.SealedKey) error {
	query := `INSERT INTO keys (id, longid_ref, payload, nonce) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, k.ID, k.LongidRef, k.Payload, k.Nonce)
	if err != nil {
		return fmt.Errorf("failed to insert key: %w", err)
	}
	pos, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get key position: %w", err)
	}
	k.Position = pos
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.SealedKey, error) {
	return r.query(ctx, `SELECT position, id, longid_ref, payload, nonce FROM keys ORDER BY position`)
}

func (r *SQLiteRepository) GetByLongidRef(ctx context.Context, ref []byte) ([]*models.SealedKey, error) {
	return r.query(ctx, `SELECT position, id, longid_ref, payload, nonce FROM keys WHERE longid_ref = ? ORDER BY position`, ref)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.SealedKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select keys: %w", err)
	}
	defer rows.Close()

	var result []*models.SealedKey
	for rows.Next() {
		k := &models.SealedKey{}
		if err := rows.Scan(&k.Position, &k.ID, &k.LongidRef, &k.Payload, &k.Nonce); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate key rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByLongidRef(ctx context.Context, ref []byte) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM keys WHERE longid_ref = ?`, ref)
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM keys`); err != nil {
		return fmt.Errorf("failed to clear keys: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	return dbx.CountRows(ctx, r.db, "keys")
}
