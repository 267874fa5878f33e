package services

import (
	"context"

	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/dmitrijs2005/pgpkeeper/internal/store"
)

// Storage is the part of *store.Store the services use.
type Storage interface {
	Path() string
	Write(ctx context.Context, fn func(ctx context.Context, tx *store.Tx) error) error

	Keys(ctx context.Context) ([]models.KeyRecord, error)
	Recipient(ctx context.Context, email string) (*models.RecipientRecord, error)
	Recipients(ctx context.Context) ([]models.RecipientRecord, error)
	PubKeys(ctx context.Context, email string) ([]models.PubKeyRecord, error)
	User(ctx context.Context) (*models.UserRecord, error)
}
