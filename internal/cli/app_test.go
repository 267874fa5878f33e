package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/config"
	"github.com/dmitrijs2005/pgpkeeper/internal/legacy"
	"github.com/dmitrijs2005/pgpkeeper/internal/legacy/legacytest"
	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/dmitrijs2005/pgpkeeper/internal/pgp"
	"github.com/dmitrijs2005/pgpkeeper/internal/pgp/pgptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = dir
	return cfg
}

func newTestApp(t *testing.T, dir string) *App {
	t.Helper()
	a := NewApp(testConfig(dir), logging.Discard())
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func run(a *App, stdin string, args ...string) (string, error) {
	cmd := a.Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestContactsCommands(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir)

	key := pgptest.Generate(t, "Dave", "dave@x.com")
	details, err := pgp.NewParser().Parse(context.Background(), []byte(key.Public))
	require.NoError(t, err)
	fp := details[0].PrimaryFingerprint()
	file := writeFile(t, t.TempDir(), "dave.asc", key.Public)

	out, err := run(a, "", "contacts", "import", "dave@x.com", file, "--name", "Dave")
	require.NoError(t, err)
	assert.Contains(t, out, "1 key(s) merged into dave@x.com")

	out, err = run(a, "", "contacts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "dave@x.com")
	assert.Contains(t, out, "Dave")

	out, err = run(a, "", "contacts", "search", "DAVE")
	require.NoError(t, err)
	assert.Equal(t, "dave@x.com\n", out)

	out, err = run(a, "", "contacts", "show", "dave@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, fp)
	assert.Contains(t, out, "valid")

	out, err = run(a, "", "contacts", "export", "dave@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN PGP PUBLIC KEY BLOCK")

	_, err = run(a, "", "contacts", "touch", "dave@x.com")
	require.NoError(t, err)
	out, err = run(a, "", "contacts", "show", "dave@x.com")
	require.NoError(t, err)
	assert.NotContains(t, out, "Last used: -")

	_, err = run(a, "", "contacts", "remove-key", "dave@x.com", fp)
	require.NoError(t, err)
	out, err = run(a, "", "contacts", "show", "dave@x.com")
	require.NoError(t, err)
	assert.NotContains(t, out, fp)

	_, err = run(a, "", "contacts", "remove", "dave@x.com")
	require.NoError(t, err)
	_, err = run(a, "", "contacts", "show", "dave@x.com")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestKeysCommands(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir)

	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("kp"), nil }

	_, err := run(a, "", "keys", "public")
	require.ErrorIs(t, err, common.ErrorNotFound)

	key := pgptest.Generate(t, "Me", "me@x.com")
	file := writeFile(t, t.TempDir(), "me.asc", key.Private)

	out, err := run(a, "", "keys", "import", file, "--source", "backup", "--ask-passphrase")
	require.NoError(t, err)
	assert.Contains(t, out, "1 key(s) stored")

	_, err = run(a, "", "keys", "import", file, "--update")
	require.NoError(t, err)

	keys, err := a.keys.Keys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1, "--update replaces the rows of the same longid")
	assert.Equal(t, models.KeySourceImported, keys[0].Source)

	out, err = run(a, "", "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, out, keys[0].Longid)

	out, err = run(a, "", "keys", "public")
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN PGP PUBLIC KEY BLOCK")

	_, err = run(a, "", "keys", "import", file, "--source", "stolen")
	require.ErrorIs(t, err, models.ErrUnknownKeySource)
}

func TestKeysImport_PassphraseIsStored(t *testing.T) {
	a := newTestApp(t, t.TempDir())

	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("kp"), nil }

	key := pgptest.Generate(t, "Me", "me@x.com")
	_, err := run(a, key.Private, "keys", "import", "-", "--ask-passphrase")
	require.NoError(t, err)

	keys, err := a.keys.Keys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "kp", keys[0].Passphrase)
}

func TestUserCommands(t *testing.T) {
	a := newTestApp(t, t.TempDir())

	out, err := run(a, "", "user", "show")
	require.NoError(t, err)
	assert.Equal(t, "No account\n", out)

	_, err = run(a, "", "user", "set", "carol@x.com", "Carol")
	require.NoError(t, err)

	out, err = run(a, "", "user", "show")
	require.NoError(t, err)
	assert.Equal(t, "Carol <carol@x.com>\n", out)
}

func TestLogoutCommand(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir)

	_, err := run(a, "", "user", "set", "carol@x.com", "Carol")
	require.NoError(t, err)

	out, err := run(a, "no\n", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")
	u, err := a.keys.GetUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, u)

	out, err = run(a, "yes\n", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	u, err = a.keys.GetUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = run(a, "", "logout", "-y")
	require.NoError(t, err)
}

func TestMigrateCommand_LegacyThenNotNeeded(t *testing.T) {
	dir := t.TempDir()
	legacyPath := filepath.Join(dir, config.DefaultLegacyDBName)
	legacytest.Write(t, legacyPath, legacy.Snapshot{
		Recipients: []models.RecipientRecord{{Email: "old@x.com", Name: "Old"}},
	}, true)

	a := newTestApp(t, dir)
	out, err := run(a, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migration: legacy-to-encrypted")
	assert.NoFileExists(t, legacyPath)

	out, err = run(a, "", "contacts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "old@x.com")
	require.NoError(t, a.Close())

	b := newTestApp(t, dir)
	out, err = run(b, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migration: not-needed")
}

func TestMissingStorageKey_IsFatal(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir)
	_, err := run(a, "", "migrate")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, config.DefaultKeyFileName)))

	b := newTestApp(t, dir)
	_, err = run(b, "", "contacts", "list")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.FileExists(t, filepath.Join(dir, config.DefaultEncryptedDBName))
}

func TestDataDirFlagOverridesConfig(t *testing.T) {
	a := newTestApp(t, t.TempDir())
	other := t.TempDir()

	_, err := run(a, "", "--data-dir", other, "user", "set", "x@x.com", "X")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, config.DefaultEncryptedDBName))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("open: %w", common.ErrKeyUnavailable), true},
		{fmt.Errorf("open: %w", common.ErrWrongEncryptionKey), true},
		{fmt.Errorf("migrate: %w", common.ErrLegacyNotRemoved), true},
		{fmt.Errorf("migrate: %w", common.ErrLegacyCorrupt), false},
		{common.ErrorNotFound, false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsFatal(tt.err), "%v", tt.err)
	}
}
