// Package pgptest generates throwaway OpenPGP keys for tests.
package pgptest

import (
	"bytes"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// Key is a generated key in the encodings tests need.
type Key struct {
	Entity  *openpgp.Entity
	Public  string
	Private string
	Binary  []byte
}

// Generate creates a new key for the given user id parts.
func Generate(t testing.TB, name, email string) Key {
	t.Helper()
	entity, err := openpgp.NewEntity(name, "", email, nil)
	if err != nil {
		t.Fatalf("openpgp.NewEntity() error: %v", err)
	}

	k := Key{Entity: entity}

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode() error: %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("entity.Serialize() error: %v", err)
	}
	_ = w.Close()
	k.Public = pub.String()

	var priv bytes.Buffer
	w, err = armor.Encode(&priv, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode() error: %v", err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatalf("entity.SerializePrivate() error: %v", err)
	}
	_ = w.Close()
	k.Private = priv.String()

	var bin bytes.Buffer
	if err := entity.Serialize(&bin); err != nil {
		t.Fatalf("entity.Serialize() error: %v", err)
	}
	k.Binary = bin.Bytes()

	return k
}
