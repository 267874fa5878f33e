package pubkeys

import (
	"context"

	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

// Repository describes storage operations on sealed pub key rows.
type Repository interface {
	// Insert appends a row and sets its Position.
	Insert(ctx context.Context, k *models.SealedPubKey) error

	// Update replaces the payload of the row at k.Position.
	Update(ctx context.Context, k *models.SealedPubKey) error

	// GetByRecipient returns the rows of one recipient in insertion order.
	GetByRecipient(ctx context.Context, recipientRef []byte) ([]*models.SealedPubKey, error)

	// GetByFingerprint returns the rows of one recipient that share a fingerprint.
	GetByFingerprint(ctx context.Context, recipientRef, fingerprintRef []byte) ([]*models.SealedPubKey, error)

	// GetAll returns every row in insertion order.
	GetAll(ctx context.Context) ([]*models.SealedPubKey, error)

	DeleteByRecipient(ctx context.Context, recipientRef []byte) (int64, error)
	DeleteByFingerprint(ctx context.Context, recipientRef, fingerprintRef []byte) (int64, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
