package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/dmitrijs2005/pgpkeeper/internal/store"
)

type KeyService struct {
	store Storage
	log   logging.Logger
}

func NewKeyService(st Storage, log logging.Logger) *KeyService {
	return &KeyService{store: st, log: log.With("component", "keys")}
}

func newKeyRecords(keys []models.KeyDetails, passphrase string, source models.KeySource) ([]models.KeyRecord, error) {
	out := make([]models.KeyRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := models.NewKeyRecord(k, passphrase, source)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k.PrimaryFingerprint(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// AddKeys stores one record per key in a single transaction. It does not
// look for existing copies of the same key.
func (s *KeyService) AddKeys(ctx context.Context, keys []models.KeyDetails, passphrase string, source models.KeySource) error {
	recs, err := newKeyRecords(keys, passphrase, source)
	if err != nil {
		return err
	}
	if err := s.insert(ctx, recs); err != nil {
		return fmt.Errorf("failed to add keys: %w", err)
	}
	s.log.Info(ctx, "keys added", "count", len(recs), "source", string(source))
	return nil
}

// UpdateKeys replaces the stored rows of each key's longid. Every delete and
// the final insert run in separate transactions: an interruption can leave a
// key missing but never duplicated.
func (s *KeyService) UpdateKeys(ctx context.Context, keys []models.KeyDetails, passphrase string, source models.KeySource) error {
	recs, err := newKeyRecords(keys, passphrase, source)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		var removed int
		err := s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) (err error) {
			removed, err = tx.DeleteKeysByLongid(ctx, rec.Longid)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to remove old rows of key %s: %w", rec.Longid, err)
		}
		s.log.Debug(ctx, "old key rows removed", "longid", rec.Longid, "count", removed)
	}

	if err := s.insert(ctx, recs); err != nil {
		return fmt.Errorf("failed to store updated keys: %w", err)
	}
	s.log.Info(ctx, "keys updated", "count", len(recs), "source", string(source))
	return nil
}

func (s *KeyService) insert(ctx context.Context, recs []models.KeyRecord) error {
	return s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		for _, rec := range recs {
			if err := tx.AddKey(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *KeyService) Keys(ctx context.Context) ([]models.KeyRecord, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}
	return keys, nil
}

// PublicKey returns the public armor of the first stored key, or "" when
// there are no keys.
func (s *KeyService) PublicKey(ctx context.Context) (string, error) {
	keys, err := s.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return "", err
	}
	return keys[0].Public, nil
}

// GetUser returns the current account, or nil when none was saved.
func (s *KeyService) GetUser(ctx context.Context) (*models.UserRecord, error) {
	u, err := s.store.User(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// SaveUser upserts u by email.
func (s *KeyService) SaveUser(ctx context.Context, u models.UserRecord) error {
	err := s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		return tx.PutUser(ctx, u)
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
