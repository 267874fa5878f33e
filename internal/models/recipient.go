package models

import (
	"slices"
	"time"
)

// PubKey is one public key of a contact.
type PubKey struct {
	Armored      string
	Fingerprint  string
	Fingerprints []string
	Longids      []string
	LastSig      *time.Time
	Created      time.Time
	Expiration   *time.Time
	Emails       []string
	Revoked      bool
}

func NewPubKey(d KeyDetails) PubKey {
	return PubKey{
		Armored:      d.Public,
		Fingerprint:  d.PrimaryFingerprint(),
		Fingerprints: d.Fingerprints(),
		Longids:      d.Longids(),
		LastSig:      d.LastModified,
		Created:      d.Created,
		Expiration:   d.Expiration,
		Emails:       d.Emails(),
		Revoked:      d.Revoked,
	}
}

func (k PubKey) IsExpired(now time.Time) bool {
	return k.Expiration != nil && !k.Expiration.After(now)
}

// Recipient is a contact with its public keys in preference order.
type Recipient struct {
	Email    string
	Name     string
	LastUsed *time.Time
	PubKeys  []PubKey
}

// NewRecipient builds a Recipient from parsed key details and sorts its keys.
func NewRecipient(email, name string, lastUsed *time.Time, keys []KeyDetails) Recipient {
	r := Recipient{Email: email, Name: name, LastUsed: lastUsed, PubKeys: make([]PubKey, 0, len(keys))}
	for _, d := range keys {
		r.PubKeys = append(r.PubKeys, NewPubKey(d))
	}
	SortPubKeys(r.PubKeys, time.Now())
	return r
}

// SortPubKeys orders keys for use: usable before revoked, unexpired before
// expired, then the most recently signed first. Keys without lastSig sort
// after keys that have one. The sort is stable.
func SortPubKeys(keys []PubKey, now time.Time) {
	rank := func(k PubKey) int {
		switch {
		case k.Revoked:
			return 2
		case k.IsExpired(now):
			return 1
		default:
			return 0
		}
	}
	slices.SortStableFunc(keys, func(a, b PubKey) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return -CompareLastSig(a.LastSig, b.LastSig)
	})
}

// CompareLastSig orders signature times with nil as the oldest value.
func CompareLastSig(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// PubKeyRecord is the stored form of a contact's public key.
type PubKeyRecord struct {
	Armored            string     `json:"armored"`
	PrimaryFingerprint string     `json:"primary_fingerprint"`
	AllFingerprints    []string   `json:"all_fingerprints"`
	AllLongids         []string   `json:"all_longids"`
	LastSig            *time.Time `json:"last_sig,omitempty"`
	Created            time.Time  `json:"created"`
	Expiration         *time.Time `json:"expiration,omitempty"`
	Emails             []string   `json:"emails"`
	Revoked            bool       `json:"revoked,omitempty"`
}

func NewPubKeyRecord(k PubKey) PubKeyRecord {
	var r PubKeyRecord
	r.Update(k)
	return r
}

// Update overwrites every field of r with the values of k.
func (r *PubKeyRecord) Update(k PubKey) {
	r.Armored = k.Armored
	r.PrimaryFingerprint = k.Fingerprint
	r.AllFingerprints = slices.Clone(k.Fingerprints)
	r.AllLongids = slices.Clone(k.Longids)
	r.LastSig = cloneTime(k.LastSig)
	r.Created = k.Created
	r.Expiration = cloneTime(k.Expiration)
	r.Emails = slices.Clone(k.Emails)
	r.Revoked = k.Revoked
}

// PubKey converts the stored form back to the domain form.
func (r PubKeyRecord) PubKey() PubKey {
	return PubKey{
		Armored:      r.Armored,
		Fingerprint:  r.PrimaryFingerprint,
		Fingerprints: slices.Clone(r.AllFingerprints),
		Longids:      slices.Clone(r.AllLongids),
		LastSig:      cloneTime(r.LastSig),
		Created:      r.Created,
		Expiration:   cloneTime(r.Expiration),
		Emails:       slices.Clone(r.Emails),
		Revoked:      r.Revoked,
	}
}

// RecipientRecord is the stored form of a contact. Email is the primary key
// and is matched exactly, including case.
type RecipientRecord struct {
	Email    string         `json:"email"`
	Name     string         `json:"name,omitempty"`
	LastUsed *time.Time     `json:"last_used,omitempty"`
	PubKeys  []PubKeyRecord `json:"-"`
}

func NewRecipientRecord(r Recipient) RecipientRecord {
	rec := RecipientRecord{Email: r.Email, Name: r.Name, LastUsed: cloneTime(r.LastUsed)}
	for _, k := range r.PubKeys {
		rec.PubKeys = append(rec.PubKeys, NewPubKeyRecord(k))
	}
	return rec
}

// Recipient converts the stored form to the domain form with keys sorted
// for use at now.
func (r RecipientRecord) Recipient(now time.Time) Recipient {
	out := Recipient{Email: r.Email, Name: r.Name, LastUsed: cloneTime(r.LastUsed), PubKeys: make([]PubKey, 0, len(r.PubKeys))}
	for _, k := range r.PubKeys {
		out.PubKeys = append(out.PubKeys, k.PubKey())
	}
	SortPubKeys(out.PubKeys, now)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
