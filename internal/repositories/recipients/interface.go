package recipients

import (
	"context"

	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

// Repository describes storage operations on sealed recipient rows.
type Repository interface {
	// Upsert inserts r or replaces the payload of the row with the same email index.
	Upsert(ctx context.Context, r *models.SealedRecipient) error

	// Get returns the row for ref or common.ErrorNotFound.
	Get(ctx context.Context, ref []byte) (*models.SealedRecipient, error)

	// GetAll returns every row in insertion order.
	GetAll(ctx context.Context) ([]*models.SealedRecipient, error)

	// Delete removes the row for ref and reports whether it existed.
	Delete(ctx context.Context, ref []byte) (bool, error)

	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
