package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/pgpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/pgpkeeper/internal/keychain"
	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/dmitrijs2005/pgpkeeper/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encrypted.db")
	st := store.New(path, keychain.StaticKeyHolder{Key: bytes.Repeat([]byte{4}, cryptox.KeySize)}, logging.Discard())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func at(hour int) *time.Time {
	t := time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC)
	return &t
}

func pub(fp string, lastSig *time.Time, armored string) models.PubKey {
	return models.PubKey{
		Armored:      armored,
		Fingerprint:  fp,
		Fingerprints: []string{fp},
		Longids:      []string{fp[len(fp)-4:]},
		LastSig:      lastSig,
		Created:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func privateKey(longid, public string) models.KeyDetails {
	return models.KeyDetails{
		Public:  public,
		Private: "PRIVATE-" + public,
		IDs:     []models.KeyID{{Fingerprint: "FFFFFFFFFFFFFFFFFFFFFFFF" + longid, Longid: longid}},
	}
}

// failingWrites wraps a store and fails the Write calls whose 1-based index
// is listed in failOn.
type failingWrites struct {
	*store.Store
	calls  int
	failOn map[int]bool
}

var errInjected = errors.New("injected write failure")

func (f *failingWrites) Write(ctx context.Context, fn func(ctx context.Context, tx *store.Tx) error) error {
	f.calls++
	if f.failOn[f.calls] {
		return errInjected
	}
	return f.Store.Write(ctx, fn)
}
