package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/dmitrijs2005/pgpkeeper/internal/pgp"
	"github.com/dmitrijs2005/pgpkeeper/internal/store"
)

type ContactsOption func(*ContactsService)

// WithClock replaces time.Now for last-used stamps and key sorting.
func WithClock(now func() time.Time) ContactsOption {
	return func(s *ContactsService) { s.now = now }
}

type ContactsService struct {
	store  Storage
	parser pgp.Parser
	log    logging.Logger
	now    func() time.Time
}

func NewContactsService(st Storage, parser pgp.Parser, log logging.Logger, opts ...ContactsOption) *ContactsService {
	s := &ContactsService{store: st, parser: parser, log: log.With("component", "contacts"), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SearchRecipient looks up a contact by exact email. Stored keys are parsed
// again; keys that fail to parse are left out. It returns (nil, nil) when
// there is no such contact.
func (s *ContactsService) SearchRecipient(ctx context.Context, email string) (*models.Recipient, error) {
	rec, err := s.store.Recipient(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return s.parseRecipient(ctx, *rec)
}

// parseRecipient rebuilds a contact from its stored record, parsing every
// key again and dropping keys that no longer parse.
func (s *ContactsService) parseRecipient(ctx context.Context, rec models.RecipientRecord) (*models.Recipient, error) {
	r := &models.Recipient{Email: rec.Email, Name: rec.Name, LastUsed: rec.LastUsed}
	for _, pk := range rec.PubKeys {
		details, err := s.parser.Parse(ctx, []byte(pk.Armored))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Warn(ctx, "dropping unparsable pub key", "email", rec.Email, "fingerprint", pk.PrimaryFingerprint, "error", err)
			continue
		}
		for _, d := range details {
			r.PubKeys = append(r.PubKeys, models.NewPubKey(d))
		}
	}
	models.SortPubKeys(r.PubKeys, s.now())
	return r, nil
}

// SearchEmails returns the stored emails containing query under simple
// Unicode case folding, in ascending order.
func (s *ContactsService) SearchEmails(ctx context.Context, query string) ([]string, error) {
	all, err := s.store.Recipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	q := foldCase(query)
	out := []string{}
	for _, r := range all {
		if strings.Contains(foldCase(r.Email), q) {
			out = append(out, r.Email)
		}
	}
	slices.Sort(out)
	return out, nil
}

// foldCase maps every rune to the smallest member of its simple folding
// orbit, so two strings fold equal exactly when strings.EqualFold holds.
func foldCase(v string) string {
	return strings.Map(func(r rune) rune {
		least := r
		for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
			least = min(least, f)
		}
		return least
	}, v)
}

// RetrievePubKeys returns the armored keys stored for email, in insertion
// order. It is empty for unknown contacts.
func (s *ContactsService) RetrievePubKeys(ctx context.Context, email string) ([]string, error) {
	keys, err := s.store.PubKeys(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load pub keys: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Armored)
	}
	return out, nil
}

// Save inserts r or replaces the stored contact with the same email,
// including its keys.
func (s *ContactsService) Save(ctx context.Context, r models.Recipient) error {
	err := s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		return tx.PutRecipient(ctx, models.NewRecipientRecord(r))
	})
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}
	return nil
}

// Remove deletes the contact with r's email and all of its keys.
func (s *ContactsService) Remove(ctx context.Context, r models.Recipient) error {
	err := s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.DeleteRecipient(ctx, r.Email)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to remove recipient: %w", err)
	}
	return nil
}

// UpdateKeys merges the keys of r into the stored contact.
//
// An unknown contact is inserted as given. Otherwise each incoming key is
// matched by primary fingerprint: unmatched keys are appended, and a matched
// key is replaced only when both sides carry a lastSig and the incoming one
// is strictly newer. A missing lastSig on either side keeps the stored key.
// Applying the same or older data again changes nothing.
func (s *ContactsService) UpdateKeys(ctx context.Context, r models.Recipient) error {
	var added, replaced int
	err := s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		local, err := tx.Recipient(ctx, r.Email)
		if err != nil {
			return err
		}
		if local == nil {
			added = len(r.PubKeys)
			return tx.PutRecipient(ctx, models.NewRecipientRecord(r))
		}

		known := make(map[string]*time.Time, len(local.PubKeys))
		for _, pk := range local.PubKeys {
			if _, ok := known[pk.PrimaryFingerprint]; !ok {
				known[pk.PrimaryFingerprint] = pk.LastSig
			}
		}

		for _, k := range r.PubKeys {
			lastSig, ok := known[k.Fingerprint]
			switch {
			case !ok:
				if err := tx.AddPubKey(ctx, r.Email, models.NewPubKeyRecord(k)); err != nil {
					return err
				}
				added++
			case lastSig != nil && k.LastSig != nil && k.LastSig.After(*lastSig):
				if err := tx.ReplacePubKey(ctx, r.Email, models.NewPubKeyRecord(k)); err != nil {
					return err
				}
				replaced++
			default:
				continue
			}
			known[k.Fingerprint] = k.LastSig
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge keys of %s: %w", r.Email, err)
	}
	s.log.Debug(ctx, "recipient keys merged", "added", added, "replaced", replaced)
	return nil
}

// UpdateLastUsedDate stamps the contact with the current time. Unknown
// emails are ignored.
func (s *ContactsService) UpdateLastUsedDate(ctx context.Context, email string) error {
	err := s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.SetLastUsed(ctx, email, s.now())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update last used date: %w", err)
	}
	return nil
}

// GetAllRecipients returns every contact ordered by email, descending. Keys
// are parsed again as in SearchRecipient.
func (s *ContactsService) GetAllRecipients(ctx context.Context) ([]models.Recipient, error) {
	recs, err := s.store.Recipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	out := make([]models.Recipient, 0, len(recs))
	for _, rec := range recs {
		r, err := s.parseRecipient(ctx, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b models.Recipient) int {
		return strings.Compare(b.Email, a.Email)
	})
	return out, nil
}

// RemovePubKey deletes the keys of email whose primary fingerprint equals
// fingerprint. Other keys and other contacts are untouched.
func (s *ContactsService) RemovePubKey(ctx context.Context, fingerprint, email string) error {
	err := s.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.DeletePubKeys(ctx, email, fingerprint)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to remove pub key: %w", err)
	}
	return nil
}
