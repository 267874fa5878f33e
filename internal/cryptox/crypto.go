// Package cryptox holds the record-level cryptography of the encrypted
// store: key derivation, AES-GCM sealing of JSON payloads, and HMAC blind
// indexes for lookup columns.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of the storage encryption key and of every derived key.
const KeySize = 32

var ErrInvalidKeySize = errors.New("invalid key size")

const (
	infoRecordKey = "pgpkeeper/record-encryption/v1"
	infoIndexKey  = "pgpkeeper/blind-index/v1"
)

func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// DeriveMasterKey stretches a passphrase into a KeySize key with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

// Keys are the sub-keys derived from the storage encryption key. Record
// payloads are sealed with Record; lookup columns are keyed with Index.
type Keys struct {
	Record []byte
	Index  []byte
}

// DeriveKeys expands the storage key into independent sub-keys with HKDF-SHA256.
func DeriveKeys(master []byte) (*Keys, error) {
	if len(master) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(master), KeySize)
	}
	k := &Keys{}
	var err error
	if k.Record, err = expand(master, infoRecordKey); err != nil {
		return nil, err
	}
	if k.Index, err = expand(master, infoIndexKey); err != nil {
		return nil, err
	}
	return k, nil
}

func expand(master []byte, info string) ([]byte, error) {
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}

// BlindIndex returns HMAC-SHA256(key, value). Equal inputs give equal
// outputs, so the result can serve as a primary key without storing value.
func BlindIndex(key []byte, value string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(value))
	return m.Sum(nil)
}

// EncryptEntry serializes the given entry to JSON and encrypts it using AES-GCM.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A new random
// 12-byte nonce is generated for each call. aad is authenticated but not
// encrypted; the store passes the row's blind index so a ciphertext cannot be
// moved to a different row.
//
//	ciphertext, nonce, err := EncryptEntry(record, keys.Record, ref)
func EncryptEntry(entry any, key, aad []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// DecryptEntry reverses EncryptEntry and unmarshals the JSON into v.
// It fails if the key, the nonce or aad differ from the ones used to seal.
func DecryptEntry(ciphertext, nonce, key, aad []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
