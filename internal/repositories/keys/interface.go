package keys

import (
	"context"

	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

// Repository describes storage operations on sealed key rows.
type Repository interface {
	// Insert adds a row. Position is assigned by the database.
	Insert(ctx context.Context, k *models.SealedKey) error

	// GetAll returns every row in insertion order.
	GetAll(ctx context.Context) ([]*models.SealedKey, error)

	// GetByLongidRef returns the rows whose longid index equals ref.
	GetByLongidRef(ctx context.Context, ref []byte) ([]*models.SealedKey, error)

	// DeleteByLongidRef removes the rows whose longid index equals ref and
	// reports how many were removed.
	DeleteByLongidRef(ctx context.Context, ref []byte) (int64, error)

	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
