package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, u *models.SealedUser) error {
	query := `INSERT INTO users (email_ref, payload, nonce) VALUES (?, ?, ?)
			ON CONFLICT(email_ref) DO UPDATE SET payload = excluded.payload, nonce = excluded.nonce`
	if _, err := r.db.ExecContext(ctx, query, u.EmailRef, u.Payload, u.Nonce); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.SealedUser, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email_ref, payload, nonce FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []*models.SealedUser
	for rows.Next() {
		u := &models.SealedUser{}
		if err := rows.Scan(&u.EmailRef, &u.Payload, &u.Nonce); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	return dbx.CountRows(ctx, r.db, "users")
}
