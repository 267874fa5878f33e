package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoPrivateKey     = errors.New("key has no private part")
	ErrNoKeyIDs         = errors.New("key has no ids")
	ErrUnknownKeySource = errors.New("unknown key source")
)

// KeySource tells where a private key came from.
type KeySource string

const (
	KeySourceGenerated KeySource = "generated"
	KeySourceImported  KeySource = "imported"
	KeySourceBackup    KeySource = "backup"
	KeySourceEKM       KeySource = "ekm"
)

func ParseKeySource(s string) (KeySource, error) {
	switch src := KeySource(strings.ToLower(strings.TrimSpace(s))); src {
	case KeySourceGenerated, KeySourceImported, KeySourceBackup, KeySourceEKM:
		return src, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKeySource, s)
	}
}

// KeyID pairs a fingerprint with its longid (last 16 hex digits).
type KeyID struct {
	Fingerprint string `json:"fingerprint"`
	Longid      string `json:"longid"`
}

// KeyDetails is the parsed form of one PGP key. IDs lists the primary key
// first, followed by subkeys. LastModified is the time of the newest
// self-signature (lastSig) when the key has one.
type KeyDetails struct {
	Public           string
	Private          string
	IDs              []KeyID
	Users            []string
	Created          time.Time
	LastModified     *time.Time
	Expiration       *time.Time
	Revoked          bool
	IsFullyEncrypted bool
	IsFullyDecrypted bool
}

func (d KeyDetails) IsPrivate() bool { return d.Private != "" }

func (d KeyDetails) PrimaryFingerprint() string {
	if len(d.IDs) == 0 {
		return ""
	}
	return d.IDs[0].Fingerprint
}

func (d KeyDetails) PrimaryLongid() string {
	if len(d.IDs) == 0 {
		return ""
	}
	return d.IDs[0].Longid
}

func (d KeyDetails) Fingerprints() []string {
	out := make([]string, 0, len(d.IDs))
	for _, id := range d.IDs {
		out = append(out, id.Fingerprint)
	}
	return out
}

func (d KeyDetails) Longids() []string {
	out := make([]string, 0, len(d.IDs))
	for _, id := range d.IDs {
		out = append(out, id.Longid)
	}
	return out
}

// Emails extracts the addresses from the user ids. User ids that are not
// RFC 5322 addresses but look like a bare address are kept as-is.
func (d KeyDetails) Emails() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, u := range d.Users {
		email := ""
		if a, err := mail.ParseAddress(u); err == nil {
			email = a.Address
		} else if strings.Contains(u, "@") && !strings.ContainsAny(u, " <>") {
			email = u
		}
		if email == "" {
			continue
		}
		email = strings.ToLower(email)
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// KeyRecord is the stored form of one of the user's own keys.
// ID identifies the row; longid is not unique at the storage layer.
type KeyRecord struct {
	ID                 string    `json:"id"`
	Private            string    `json:"private"`
	Public             string    `json:"public"`
	Longid             string    `json:"longid"`
	PrimaryFingerprint string    `json:"primary_fingerprint"`
	AllFingerprints    []string  `json:"all_fingerprints"`
	AllLongids         []string  `json:"all_longids"`
	Passphrase         string    `json:"passphrase,omitempty"`
	Source             KeySource `json:"source"`
}

// NewKeyRecord builds a KeyRecord with a fresh row ID. The details must carry
// private key material and at least one key id.
func NewKeyRecord(d KeyDetails, passphrase string, source KeySource) (KeyRecord, error) {
	if !d.IsPrivate() {
		return KeyRecord{}, ErrNoPrivateKey
	}
	if len(d.IDs) == 0 {
		return KeyRecord{}, ErrNoKeyIDs
	}
	return KeyRecord{
		ID:                 uuid.NewString(),
		Private:            d.Private,
		Public:             d.Public,
		Longid:             d.PrimaryLongid(),
		PrimaryFingerprint: d.PrimaryFingerprint(),
		AllFingerprints:    d.Fingerprints(),
		AllLongids:         d.Longids(),
		Passphrase:         passphrase,
		Source:             source,
	}, nil
}
