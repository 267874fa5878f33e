package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `json:"email"`
	N     int    `json:"n"`
}

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveMasterKey(password, salt)
	key2 := DeriveMasterKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveMasterKey_DifferentInputs(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveMasterKey(password, []byte("salt-1"))
	key2 := DeriveMasterKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestDeriveKeys(t *testing.T) {
	k1, err := DeriveKeys(testKey(1))
	require.NoError(t, err)
	k2, err := DeriveKeys(testKey(1))
	require.NoError(t, err)

	require.Len(t, k1.Record, KeySize)
	require.Len(t, k1.Index, KeySize)
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1.Record, k1.Index)

	k3, err := DeriveKeys(testKey(2))
	require.NoError(t, err)
	require.NotEqual(t, k1.Record, k3.Record)
}

func TestDeriveKeys_RejectsShortKey(t *testing.T) {
	_, err := DeriveKeys([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestBlindIndex(t *testing.T) {
	a := BlindIndex(testKey(1), "alice@x.com")
	require.Len(t, a, 32)
	require.Equal(t, a, BlindIndex(testKey(1), "alice@x.com"))
	require.NotEqual(t, a, BlindIndex(testKey(1), "Alice@x.com"), "index is case sensitive")
	require.NotEqual(t, a, BlindIndex(testKey(2), "alice@x.com"))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(7)
	in := sample{Email: "bob@x.com", N: 3}

	ct, nonce, err := EncryptEntry(in, key, []byte("row-1"))
	require.NoError(t, err)
	require.Len(t, nonce, 12)
	require.NotContains(t, string(ct), "bob@x.com")

	var out sample
	require.NoError(t, DecryptEntry(ct, nonce, key, []byte("row-1"), &out))
	require.Equal(t, in, out)
}

func TestDecrypt_FailsOnWrongKeyOrAAD(t *testing.T) {
	ct, nonce, err := EncryptEntry(sample{Email: "x"}, testKey(7), []byte("row-1"))
	require.NoError(t, err)

	var out sample
	require.Error(t, DecryptEntry(ct, nonce, testKey(8), []byte("row-1"), &out))
	require.Error(t, DecryptEntry(ct, nonce, testKey(7), []byte("row-2"), &out))
}

func TestEncrypt_FreshNonceEachCall(t *testing.T) {
	_, n1, err := EncryptEntry(sample{}, testKey(1), nil)
	require.NoError(t, err)
	_, n2, err := EncryptEntry(sample{}, testKey(1), nil)
	require.NoError(t, err)
	require.NotEqual(t, n1, n2)
}

func TestEncrypt_InvalidKey(t *testing.T) {
	_, _, err := EncryptEntry(sample{}, []byte("bad"), nil)
	require.Error(t, err)
}

func TestMakeVerifier(t *testing.T) {
	v := MakeVerifier(testKey(1))
	require.Len(t, v, 32)
	require.Equal(t, v, MakeVerifier(testKey(1)))
	require.NotEqual(t, v, MakeVerifier(testKey(2)))
}
