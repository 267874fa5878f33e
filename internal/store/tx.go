package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/keys"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/pubkeys"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/recipients"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/users"
	"github.com/google/uuid"
)

// Tx is a handle bound either to a running transaction (inside Write) or to
// the database itself (for reads on Store). Mutating methods are only
// reachable through Write.
type Tx struct {
	keys       *cryptox.Keys
	keyRows    keys.Repository
	recipients recipients.Repository
	pubKeys    pubkeys.Repository
	users      users.Repository
}

// Counts is the number of rows per record family.
type Counts struct {
	Keys       int
	Recipients int
	PubKeys    int
	Users      int
}

func (c Counts) Total() int { return c.Keys + c.Recipients + c.PubKeys + c.Users }

// Blind indexes are separated per field so equal strings in different
// fields never share an index value.
func (t *Tx) ref(field, value string) []byte {
	return cryptox.BlindIndex(t.keys.Index, field+"\x00"+value)
}

func (t *Tx) emailRef(email string) []byte { return t.ref("email", email) }

func pubKeyAAD(recipientRef, fingerprintRef []byte) []byte {
	aad := make([]byte, 0, len(recipientRef)+len(fingerprintRef))
	aad = append(aad, recipientRef...)
	return append(aad, fingerprintRef...)
}

func (t *Tx) seal(v any, aad []byte) (payload, nonce []byte, err error) {
	payload, nonce, err = cryptox.EncryptEntry(v, t.keys.Record, aad)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to seal record: %w", err)
	}
	return payload, nonce, nil
}

func (t *Tx) unseal(payload, nonce, aad []byte, v any) error {
	if err := cryptox.DecryptEntry(payload, nonce, t.keys.Record, aad, v); err != nil {
		return fmt.Errorf("failed to open record: %w", err)
	}
	return nil
}

// ---- keys ----

// AddKey stores rec. An empty ID is replaced by a new uuid.
func (t *Tx) AddKey(ctx context.Context, rec models.KeyRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	payload, nonce, err := t.seal(rec, []byte(rec.ID))
	if err != nil {
		return err
	}
	return t.keyRows.Insert(ctx, &models.SealedKey{
		ID:        rec.ID,
		LongidRef: t.ref("longid", rec.Longid),
		Payload:   payload,
		Nonce:     nonce,
	})
}

func (t *Tx) DeleteKeysByLongid(ctx context.Context, longid string) (int, error) {
	n, err := t.keyRows.DeleteByLongidRef(ctx, t.ref("longid", longid))
	return int(n), err
}

func (t *Tx) DeleteAllKeys(ctx context.Context) error {
	return t.keyRows.DeleteAll(ctx)
}

// Keys returns all key records in insertion order.
func (t *Tx) Keys(ctx context.Context) ([]models.KeyRecord, error) {
	rows, err := t.keyRows.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return t.openKeys(rows)
}

func (t *Tx) KeysByLongid(ctx context.Context, longid string) ([]models.KeyRecord, error) {
	rows, err := t.keyRows.GetByLongidRef(ctx, t.ref("longid", longid))
	if err != nil {
		return nil, err
	}
	return t.openKeys(rows)
}

func (t *Tx) openKeys(rows []*models.SealedKey) ([]models.KeyRecord, error) {
	out := make([]models.KeyRecord, 0, len(rows))
	for _, row := range rows {
		var rec models.KeyRecord
		if err := t.unseal(row.Payload, row.Nonce, []byte(row.ID), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ---- recipients ----

// PutRecipient inserts rec or replaces the stored recipient with the same
// email, including its pub keys.
func (t *Tx) PutRecipient(ctx context.Context, rec models.RecipientRecord) error {
	ref := t.emailRef(rec.Email)
	if err := t.putRecipientRow(ctx, ref, rec); err != nil {
		return err
	}
	if _, err := t.pubKeys.DeleteByRecipient(ctx, ref); err != nil {
		return err
	}
	for _, pk := range rec.PubKeys {
		if err := t.insertPubKey(ctx, ref, pk); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) putRecipientRow(ctx context.Context, ref []byte, rec models.RecipientRecord) error {
	payload, nonce, err := t.seal(rec, ref)
	if err != nil {
		return err
	}
	return t.recipients.Upsert(ctx, &models.SealedRecipient{EmailRef: ref, Payload: payload, Nonce: nonce})
}

// DeleteRecipient removes the recipient and its pub keys and reports
// whether it existed.
func (t *Tx) DeleteRecipient(ctx context.Context, email string) (bool, error) {
	ref := t.emailRef(email)
	if _, err := t.pubKeys.DeleteByRecipient(ctx, ref); err != nil {
		return false, err
	}
	return t.recipients.Delete(ctx, ref)
}

// SetLastUsed updates the recipient's last-used time. It reports false when
// no recipient has that email.
func (t *Tx) SetLastUsed(ctx context.Context, email string, at time.Time) (bool, error) {
	ref := t.emailRef(email)
	rec, err := t.recipientRow(ctx, ref)
	if err != nil || rec == nil {
		return false, err
	}
	at = at.UTC()
	rec.LastUsed = &at
	return true, t.putRecipientRow(ctx, ref, *rec)
}

// Recipient returns the recipient with exactly this email and its pub keys
// in insertion order, or nil when there is none.
func (t *Tx) Recipient(ctx context.Context, email string) (*models.RecipientRecord, error) {
	ref := t.emailRef(email)
	rec, err := t.recipientRow(ctx, ref)
	if err != nil || rec == nil {
		return nil, err
	}
	rec.PubKeys, err = t.pubKeysOf(ctx, ref)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *Tx) recipientRow(ctx context.Context, ref []byte) (*models.RecipientRecord, error) {
	row, err := t.recipients.Get(ctx, ref)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := &models.RecipientRecord{}
	if err := t.unseal(row.Payload, row.Nonce, ref, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Recipients returns every recipient with its pub keys.
func (t *Tx) Recipients(ctx context.Context) ([]models.RecipientRecord, error) {
	rows, err := t.recipients.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	pkRows, err := t.pubKeys.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	byRecipient := make(map[string][]models.PubKeyRecord)
	for _, row := range pkRows {
		pk, err := t.openPubKey(row)
		if err != nil {
			return nil, err
		}
		byRecipient[string(row.RecipientRef)] = append(byRecipient[string(row.RecipientRef)], pk)
	}

	out := make([]models.RecipientRecord, 0, len(rows))
	for _, row := range rows {
		var rec models.RecipientRecord
		if err := t.unseal(row.Payload, row.Nonce, row.EmailRef, &rec); err != nil {
			return nil, err
		}
		rec.PubKeys = byRecipient[string(row.EmailRef)]
		out = append(out, rec)
	}
	return out, nil
}

// ---- pub keys ----

// AddPubKey appends pk to the recipient's keys. The recipient must exist.
func (t *Tx) AddPubKey(ctx context.Context, email string, pk models.PubKeyRecord) error {
	ref := t.emailRef(email)
	rec, err := t.recipientRow(ctx, ref)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("recipient %s: %w", email, common.ErrorNotFound)
	}
	return t.insertPubKey(ctx, ref, pk)
}

func (t *Tx) insertPubKey(ctx context.Context, recipientRef []byte, pk models.PubKeyRecord) error {
	fpRef := t.ref("fingerprint", pk.PrimaryFingerprint)
	payload, nonce, err := t.seal(pk, pubKeyAAD(recipientRef, fpRef))
	if err != nil {
		return err
	}
	return t.pubKeys.Insert(ctx, &models.SealedPubKey{
		RecipientRef:   recipientRef,
		FingerprintRef: fpRef,
		Payload:        payload,
		Nonce:          nonce,
	})
}

// ReplacePubKey overwrites, in place, the recipient's pub keys whose primary
// fingerprint equals pk's. It fails with common.ErrorNotFound when there is
// none.
func (t *Tx) ReplacePubKey(ctx context.Context, email string, pk models.PubKeyRecord) error {
	ref := t.emailRef(email)
	fpRef := t.ref("fingerprint", pk.PrimaryFingerprint)
	rows, err := t.pubKeys.GetByFingerprint(ctx, ref, fpRef)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("pub key %s of %s: %w", pk.PrimaryFingerprint, email, common.ErrorNotFound)
	}
	for _, row := range rows {
		row.Payload, row.Nonce, err = t.seal(pk, pubKeyAAD(ref, fpRef))
		if err != nil {
			return err
		}
		if err := t.pubKeys.Update(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// DeletePubKeys removes the recipient's pub keys with the given primary
// fingerprint and returns how many were removed.
func (t *Tx) DeletePubKeys(ctx context.Context, email, fingerprint string) (int, error) {
	n, err := t.pubKeys.DeleteByFingerprint(ctx, t.emailRef(email), t.ref("fingerprint", fingerprint))
	return int(n), err
}

// PubKeys returns the recipient's pub keys in insertion order.
func (t *Tx) PubKeys(ctx context.Context, email string) ([]models.PubKeyRecord, error) {
	return t.pubKeysOf(ctx, t.emailRef(email))
}

func (t *Tx) pubKeysOf(ctx context.Context, ref []byte) ([]models.PubKeyRecord, error) {
	rows, err := t.pubKeys.GetByRecipient(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := make([]models.PubKeyRecord, 0, len(rows))
	for _, row := range rows {
		pk, err := t.openPubKey(row)
		if err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	return out, nil
}

func (t *Tx) openPubKey(row *models.SealedPubKey) (models.PubKeyRecord, error) {
	var pk models.PubKeyRecord
	err := t.unseal(row.Payload, row.Nonce, pubKeyAAD(row.RecipientRef, row.FingerprintRef), &pk)
	return pk, err
}

// ---- users ----

// PutUser inserts u or replaces the user with the same email.
func (t *Tx) PutUser(ctx context.Context, u models.UserRecord) error {
	ref := t.emailRef(u.Email)
	payload, nonce, err := t.seal(u, ref)
	if err != nil {
		return err
	}
	return t.users.Upsert(ctx, &models.SealedUser{EmailRef: ref, Payload: payload, Nonce: nonce})
}

func (t *Tx) Users(ctx context.Context) ([]models.UserRecord, error) {
	rows, err := t.users.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserRecord, 0, len(rows))
	for _, row := range rows {
		var u models.UserRecord
		if err := t.unseal(row.Payload, row.Nonce, row.EmailRef, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// User returns the first active user, else the first user, else nil.
func (t *Tx) User(ctx context.Context) (*models.UserRecord, error) {
	all, err := t.Users(ctx)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	for i := range all {
		if all[i].IsActive {
			return &all[i], nil
		}
	}
	return &all[0], nil
}

// ---- whole store ----

// DeleteAll removes every record of every family. The key verifier stays.
func (t *Tx) DeleteAll(ctx context.Context) error {
	if err := t.pubKeys.DeleteAll(ctx); err != nil {
		return err
	}
	if err := t.recipients.DeleteAll(ctx); err != nil {
		return err
	}
	if err := t.keyRows.DeleteAll(ctx); err != nil {
		return err
	}
	return t.users.DeleteAll(ctx)
}

func (t *Tx) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Keys, err = t.keyRows.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.Recipients, err = t.recipients.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.PubKeys, err = t.pubKeys.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.Users, err = t.users.Count(ctx); err != nil {
		return Counts{}, err
	}
	return c, nil
}
