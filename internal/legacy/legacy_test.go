package legacy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/legacy"
	"github.com/dmitrijs2005/pgpkeeper/internal/legacy/legacytest"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() legacy.Snapshot {
	sig := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	used := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return legacy.Snapshot{
		Keys: []models.KeyRecord{{
			Private:            "PRIV",
			Public:             "PUB",
			Longid:             "0123456789ABCDEF",
			PrimaryFingerprint: "AAAA0123456789ABCDEF",
			AllFingerprints:    []string{"AAAA0123456789ABCDEF", "BBBB"},
			AllLongids:         []string{"0123456789ABCDEF", "BBBB"},
			Passphrase:         "pw",
			Source:             models.KeySourceBackup,
		}},
		Recipients: []models.RecipientRecord{{
			Email:    "bob@x.com",
			Name:     "Bob",
			LastUsed: &used,
			PubKeys: []models.PubKeyRecord{
				{Armored: "K1", PrimaryFingerprint: "F1", AllFingerprints: []string{"F1"}, LastSig: &sig, Created: sig, Emails: []string{"bob@x.com"}},
				{Armored: "K2", PrimaryFingerprint: "F2", Created: sig},
			},
		}, {
			Email: "eve@x.com",
		}},
		Users: []models.UserRecord{{
			Email:    "me@x.com",
			Name:     "Me",
			IsActive: true,
			IMAP:     &models.SessionRecord{Hostname: "imap.x.com", Port: 993, Username: "me"},
		}},
	}
}

func TestRead_V2(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "default.db")
	legacytest.Write(t, path, fixture(), true)

	db, err := legacy.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	snap, err := db.Read(ctx)
	require.NoError(t, err)

	require.Len(t, snap.Keys, 1)
	k := snap.Keys[0]
	assert.Equal(t, "PRIV", k.Private)
	assert.Equal(t, "0123456789ABCDEF", k.Longid)
	assert.Equal(t, []string{"AAAA0123456789ABCDEF", "BBBB"}, k.AllFingerprints)
	assert.Equal(t, "pw", k.Passphrase)
	assert.Equal(t, models.KeySourceBackup, k.Source)

	require.Len(t, snap.Recipients, 2)
	bob := snap.Recipients[0]
	assert.Equal(t, "bob@x.com", bob.Email)
	require.NotNil(t, bob.LastUsed)
	assert.Equal(t, int64(1704164645), bob.LastUsed.Unix())
	require.Len(t, bob.PubKeys, 2)
	assert.Equal(t, "K1", bob.PubKeys[0].Armored)
	require.NotNil(t, bob.PubKeys[0].LastSig)
	assert.Nil(t, bob.PubKeys[1].LastSig)
	assert.Empty(t, snap.Recipients[1].PubKeys)

	require.Len(t, snap.Users, 1)
	assert.True(t, snap.Users[0].IsActive)
	require.NotNil(t, snap.Users[0].IMAP)
	assert.Equal(t, 993, snap.Users[0].IMAP.Port)
	assert.Nil(t, snap.Users[0].SMTP)
}

func TestRead_V1HasNoUsers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "default.db")
	legacytest.Write(t, path, fixture(), false)

	db, err := legacy.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	snap, err := db.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Keys, 1)
	assert.Empty(t, snap.Users)
}

func TestOpen_Corrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.db")
	require.NoError(t, os.WriteFile(garbage, []byte("this is definitely not a sqlite database, just some text padding it out"), 0o600))
	_, err := legacy.Open(ctx, garbage)
	require.ErrorIs(t, err, common.ErrLegacyCorrupt)

	empty := filepath.Join(dir, "empty.db")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = legacy.Open(ctx, empty)
	require.ErrorIs(t, err, common.ErrLegacyCorrupt, "a database without the legacy tables is unreadable")
}

func TestOpen_CanceledContextIsNotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.db")
	legacytest.Write(t, path, fixture(), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := legacy.Open(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrLegacyCorrupt)
}

func TestRead_MalformedRowIsNotCorrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "default.db")
	legacytest.Write(t, path, fixture(), true)
	legacytest.Exec(t, path, `UPDATE pub_keys SET emails = '{broken' WHERE armored = 'K1'`)

	db, err := legacy.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Read(ctx)
	require.ErrorContains(t, err, "failed to decode list column")
	assert.NotErrorIs(t, err, common.ErrLegacyCorrupt)
}

func TestRead_CanceledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.db")
	legacytest.Write(t, path, fixture(), true)

	ctx, cancel := context.WithCancel(context.Background())
	db, err := legacy.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	cancel()
	_, err = db.Read(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrLegacyCorrupt)
}
