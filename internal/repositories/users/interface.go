package users

import (
	"context"

	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, u *models.SealedUser) error
	GetAll(ctx context.Context) ([]*models.SealedUser, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
