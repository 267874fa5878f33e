// Package legacytest writes plaintext legacy databases for tests.
package legacytest

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/pgpkeeper/internal/legacy"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"

	_ "modernc.org/sqlite"
)

// Write creates a legacy database at path holding snap. With withUsers
// false the file has the version 1 layout and snap.Users is ignored.
func Write(t testing.TB, path string, snap legacy.Snapshot, withUsers bool) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	schema := legacy.SchemaV1
	if withUsers {
		schema = legacy.SchemaV2
	}
	mustExec(t, db, schema)

	for _, k := range snap.Keys {
		mustExec(t, db, `INSERT INTO key_info (private, public, longid, primary_fingerprint, all_fingerprints, all_longids, passphrase, source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			k.Private, k.Public, k.Longid, k.PrimaryFingerprint, list(t, k.AllFingerprints), list(t, k.AllLongids), k.Passphrase, string(k.Source))
	}
	for _, r := range snap.Recipients {
		mustExec(t, db, `INSERT INTO recipients (email, name, last_used) VALUES (?, ?, ?)`, r.Email, r.Name, unix(r.LastUsed))
		for i, k := range r.PubKeys {
			mustExec(t, db, `INSERT INTO pub_keys (recipient_email, armored, primary_fingerprint, all_fingerprints, all_longids, last_sig, created, expiration, emails, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.Email, k.Armored, k.PrimaryFingerprint, list(t, k.AllFingerprints), list(t, k.AllLongids),
				unix(k.LastSig), k.Created.Unix(), unix(k.Expiration), list(t, k.Emails), i)
		}
	}
	if withUsers {
		for _, u := range snap.Users {
			mustExec(t, db, `INSERT INTO users (email, name, is_active, imap, smtp) VALUES (?, ?, ?, ?, ?)`,
				u.Email, u.Name, u.IsActive, session(t, u.IMAP), session(t, u.SMTP))
		}
	}
}

func mustExec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func list(t testing.TB, v []string) string {
	t.Helper()
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return string(b)
}

func session(t testing.TB, s *models.SessionRecord) any {
	t.Helper()
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return string(b)
}

func unix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// Exec runs query against the legacy database at path, for tests that
// damage individual rows after Write.
func Exec(t testing.TB, path, query string, args ...any) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	mustExec(t, db, query, args...)
}
