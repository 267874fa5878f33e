package recipients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
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

func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.SealedRecipient) error {
	query := `INSERT INTO recipients (email_ref, payload, nonce) VALUES (?, ?, ?)
			ON CONFLICT(email_ref) DO UPDATE SET payload = excluded.payload, nonce = excluded.nonce`
	if _, err := r.db.ExecContext(ctx, query, rec.EmailRef, rec.Payload, rec.Nonce); err != nil {
		return fmt.Errorf("failed to upsert recipient: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, ref []byte) (*models.SealedRecipient, error) {
	rec := &models.SealedRecipient{}
	err := r.db.QueryRowContext(ctx, `SELECT email_ref, payload, nonce FROM recipients WHERE email_ref = ?`, ref).
		Scan(&rec.EmailRef, &rec.Payload, &rec.Nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select recipient: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.SealedRecipient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email_ref, payload, nonce FROM recipients ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select recipients: %w", err)
	}
	defer rows.Close()

	var result []*models.SealedRecipient
	for rows.Next() {
		rec := &models.SealedRecipient{}
		if err := rows.Scan(&rec.EmailRef, &rec.Payload, &rec.Nonce); err != nil {
			return nil, fmt.Errorf("failed to scan recipient row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipient rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ref []byte) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipients WHERE email_ref = ?`, ref)
	if err != nil {
		return false, fmt.Errorf("failed to delete recipient: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recipients`); err != nil {
		return fmt.Errorf("failed to clear recipients: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	return dbx.CountRows(ctx, r.db, "recipients")
}
