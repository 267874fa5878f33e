package pubkeys

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

const selectColumns = `SELECT position, recipient_ref, fingerprint_ref, payload, nonce FROM pub_keys`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, k *models.SealedPubKey) error {
	query := `INSERT INTO pub_keys (recipient_ref, fingerprint_ref, payload, nonce) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, k.RecipientRef, k.FingerprintRef, k.Payload, k.Nonce)
	if err != nil {
		return fmt.Errorf("failed to insert pub key: %w", err)
	}
	pos, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get pub key position: %w", err)
	}
	k.Position = pos
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, k *models.SealedPubKey) error {
	query := `UPDATE pub_keys SET fingerprint_ref = ?, payload = ?, nonce = ? WHERE position = ? AND recipient_ref = ?`
	res, err := r.db.ExecContext(ctx, query, k.FingerprintRef, k.Payload, k.Nonce, k.Position, k.RecipientRef)
	if err != nil {
		return fmt.Errorf("failed to update pub key: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func (r *SQLiteRepository) GetByRecipient(ctx context.Context, recipientRef []byte) ([]*models.SealedPubKey, error) {
	return r.query(ctx, selectColumns+` WHERE recipient_ref = ? ORDER BY position`, recipientRef)
}

func (r *SQLiteRepository) GetByFingerprint(ctx context.Context, recipientRef, fingerprintRef []byte) ([]*models.SealedPubKey, error) {
	return r.query(ctx, selectColumns+` WHERE recipient_ref = ? AND fingerprint_ref = ? ORDER BY position`, recipientRef, fingerprintRef)
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.SealedPubKey, error) {
	return r.query(ctx, selectColumns+` ORDER BY position`)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.SealedPubKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select pub keys: %w", err)
	}
	defer rows.Close()

	var result []*models.SealedPubKey
	for rows.Next() {
		k := &models.SealedPubKey{}
		if err := rows.Scan(&k.Position, &k.RecipientRef, &k.FingerprintRef, &k.Payload, &k.Nonce); err != nil {
			return nil, fmt.Errorf("failed to scan pub key row: %w", err)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pub key rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByRecipient(ctx context.Context, recipientRef []byte) (int64, error) {
	return r.delete(ctx, `DELETE FROM pub_keys WHERE recipient_ref = ?`, recipientRef)
}

func (r *SQLiteRepository) DeleteByFingerprint(ctx context.Context, recipientRef, fingerprintRef []byte) (int64, error) {
	return r.delete(ctx, `DELETE FROM pub_keys WHERE recipient_ref = ? AND fingerprint_ref = ?`, recipientRef, fingerprintRef)
}

func (r *SQLiteRepository) delete(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pub keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pub_keys`); err != nil {
		return fmt.Errorf("failed to clear pub keys: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	return dbx.CountRows(ctx, r.db, "pub_keys")
}
