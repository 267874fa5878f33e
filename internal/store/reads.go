package store

import (
	"context"

	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

// Reads outside a transaction. Each opens the store on first use.

func (s *Store) Keys(ctx context.Context) ([]models.KeyRecord, error) {
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return r.Keys(ctx)
}

func (s *Store) KeysByLongid(ctx context.Context, longid string) ([]models.KeyRecord, error) {
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return r.KeysByLongid(ctx, longid)
}

func (s *Store) Recipient(ctx context.Context, email string) (*models.RecipientRecord, error) {
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return r.Recipient(ctx, email)
}

func (s *Store) Recipients(ctx context.Context) ([]models.RecipientRecord, error) {
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return r.Recipients(ctx)
}

func (s *Store) PubKeys(ctx context.Context, email string) ([]models.PubKeyRecord, error) {
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return r.PubKeys(ctx, email)
}

func (s *Store) User(ctx context.Context) (*models.UserRecord, error) {
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return r.User(ctx)
}

func (s *Store) Users(ctx context.Context) ([]models.UserRecord, error) {
	r, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return r.Users(ctx)
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	r, err := s.read(ctx)
	if err != nil {
		return Counts{}, err
	}
	return r.Counts(ctx)
}
