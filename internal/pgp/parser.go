// Package pgp turns armored or binary OpenPGP key material into
// models.KeyDetails. The storage core depends only on the Parser interface.
package pgp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
)

var ErrNoKeys = errors.New("no keys found")

// Parser reads key material. Implementations return one KeyDetails per key
// found in data, or an error when data holds no readable key.
type Parser interface {
	Parse(ctx context.Context, data []byte) ([]models.KeyDetails, error)
}

// OpenPGPParser is the Parser backed by ProtonMail/go-crypto.
type OpenPGPParser struct{}

func NewParser() *OpenPGPParser {
	return &OpenPGPParser{}
}

func (p *OpenPGPParser) Parse(ctx context.Context, data []byte) ([]models.KeyDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities, err := readEntities(data)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrNoKeys
	}

	out := make([]models.KeyDetails, 0, len(entities))
	for _, e := range entities {
		d, err := details(e)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

var armorBegin = []byte("-----BEGIN PGP")

func readEntities(data []byte) (openpgp.EntityList, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoKeys
	}

	if !bytes.HasPrefix(trimmed, armorBegin) {
		el, err := openpgp.ReadKeyRing(bytes.NewReader(trimmed))
		if err != nil {
			return nil, fmt.Errorf("read binary keyring: %w", err)
		}
		return el, nil
	}

	// armor.Decode buffers its input, so each block is decoded from its own slice.
	var all openpgp.EntityList
	for _, block := range splitArmored(trimmed) {
		b, err := armor.Decode(bytes.NewReader(block))
		if err != nil {
			return nil, fmt.Errorf("decode armor: %w", err)
		}
		el, err := openpgp.ReadKeyRing(b.Body)
		if err != nil {
			return nil, fmt.Errorf("read armored keyring: %w", err)
		}
		all = append(all, el...)
	}
	return all, nil
}

func splitArmored(data []byte) [][]byte {
	var blocks [][]byte
	for {
		start := bytes.Index(data, armorBegin)
		if start < 0 {
			return blocks
		}
		data = data[start:]
		next := bytes.Index(data[len(armorBegin):], armorBegin)
		if next < 0 {
			return append(blocks, data)
		}
		end := len(armorBegin) + next
		blocks = append(blocks, data[:end])
		data = data[end:]
	}
}

func details(e *openpgp.Entity) (models.KeyDetails, error) {
	d := models.KeyDetails{
		IDs:     []models.KeyID{keyID(e.PrimaryKey)},
		Created: e.PrimaryKey.CreationTime.UTC(),
		Revoked: len(e.Revocations) > 0,
	}
	for _, sk := range e.Subkeys {
		d.IDs = append(d.IDs, keyID(sk.PublicKey))
	}

	for name := range e.Identities {
		d.Users = append(d.Users, name)
	}
	sort.Strings(d.Users)

	d.LastModified = lastSignature(e)
	d.Expiration = expiration(e)

	pub, err := armored(openpgp.PublicKeyType, e.Serialize)
	if err != nil {
		return models.KeyDetails{}, fmt.Errorf("serialize public key %s: %w", d.PrimaryFingerprint(), err)
	}
	d.Public = pub

	if e.PrivateKey != nil {
		priv, err := armored(openpgp.PrivateKeyType, func(w io.Writer) error {
			return e.SerializePrivateWithoutSigning(w, nil)
		})
		if err != nil {
			return models.KeyDetails{}, fmt.Errorf("serialize private key %s: %w", d.PrimaryFingerprint(), err)
		}
		d.Private = priv
		d.IsFullyEncrypted, d.IsFullyDecrypted = encryptionState(e)
	}
	return d, nil
}

func armored(blockType string, write func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, blockType, nil)
	if err != nil {
		return "", err
	}
	if err := write(w); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func keyID(pk *packet.PublicKey) models.KeyID {
	return models.KeyID{
		Fingerprint: fmt.Sprintf("%X", pk.Fingerprint),
		Longid:      fmt.Sprintf("%016X", pk.KeyId),
	}
}

// lastSignature is the creation time of the newest self-signature,
// subkey binding or revocation on the key.
func lastSignature(e *openpgp.Entity) *time.Time {
	var last time.Time
	consider := func(sig *packet.Signature) {
		if sig != nil && sig.CreationTime.After(last) {
			last = sig.CreationTime
		}
	}
	for _, id := range e.Identities {
		consider(id.SelfSignature)
	}
	for _, sk := range e.Subkeys {
		consider(sk.Sig)
	}
	for _, sig := range e.Revocations {
		consider(sig)
	}
	if last.IsZero() {
		return nil
	}
	last = last.UTC()
	return &last
}

// expiration comes from the newest identity self-signature carrying a key lifetime.
func expiration(e *openpgp.Entity) *time.Time {
	var newest *packet.Signature
	for _, id := range e.Identities {
		sig := id.SelfSignature
		if sig == nil {
			continue
		}
		if newest == nil || sig.CreationTime.After(newest.CreationTime) {
			newest = sig
		}
	}
	if newest == nil || newest.KeyLifetimeSecs == nil || *newest.KeyLifetimeSecs == 0 {
		return nil
	}
	exp := e.PrimaryKey.CreationTime.Add(time.Duration(*newest.KeyLifetimeSecs) * time.Second).UTC()
	return &exp
}

func encryptionState(e *openpgp.Entity) (fullyEncrypted, fullyDecrypted bool) {
	fullyEncrypted, fullyDecrypted = true, true
	check := func(pk *packet.PrivateKey) {
		if pk == nil {
			return
		}
		if pk.Encrypted {
			fullyDecrypted = false
		} else {
			fullyEncrypted = false
		}
	}
	check(e.PrivateKey)
	for _, sk := range e.Subkeys {
		check(sk.PrivateKey)
	}
	return fullyEncrypted, fullyDecrypted
}
