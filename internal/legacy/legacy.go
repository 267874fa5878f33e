// Package legacy reads the plaintext database used before storage was
// encrypted. It never writes to the file; the migration manager deletes it
// once its contents are safely copied.
package legacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
	"github.com/dmitrijs2005/pgpkeeper/internal/models"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var requiredTables = []string{"key_info", "recipients", "pub_keys"}

// Snapshot is the full content of a legacy database.
type Snapshot struct {
	Keys       []models.KeyRecord
	Recipients []models.RecipientRecord
	Users      []models.UserRecord
}

type DB struct {
	db       *sqlx.DB
	hasUsers bool
}

// Open opens the legacy file at path and checks that it is a database with
// the expected tables. Only a file that is not a database, or lacks those
// tables, wraps common.ErrLegacyCorrupt. Cancellation, locking and I/O errors
// are returned as is. The caller must make sure the file exists, since the
// driver would otherwise create an empty one.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.probe(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) probe(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return classify(ctx, err)
	}
	for _, name := range requiredTables {
		ok, err := dbx.TableExists(ctx, d.db, name)
		if err != nil {
			return classify(ctx, err)
		}
		if !ok {
			return fmt.Errorf("%w: table %s is missing", common.ErrLegacyCorrupt, name)
		}
	}
	ok, err := dbx.TableExists(ctx, d.db, "users")
	if err != nil {
		return classify(ctx, err)
	}
	d.hasUsers = ok
	return nil
}

// classify marks err as corrupt when SQLite reports a malformed file.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
			return fmt.Errorf("%w: %w", common.ErrLegacyCorrupt, err)
		}
	}
	return fmt.Errorf("failed to open legacy database: %w", err)
}

func (d *DB) Close() error { return d.db.Close() }

// Read loads every record. Its errors never wrap common.ErrLegacyCorrupt.
func (d *DB) Read(ctx context.Context) (*Snapshot, error) {
	s := &Snapshot{}
	var err error
	if s.Keys, err = d.readKeys(ctx); err != nil {
		return nil, readErr(ctx, err)
	}
	if s.Recipients, err = d.readRecipients(ctx); err != nil {
		return nil, readErr(ctx, err)
	}
	if d.hasUsers {
		if s.Users, err = d.readUsers(ctx); err != nil {
			return nil, readErr(ctx, err)
		}
	}
	return s, nil
}

func readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("failed to read legacy database: %w", err)
}

type keyRow struct {
	Private            string         `db:"private"`
	Public             string         `db:"public"`
	Longid             string         `db:"longid"`
	PrimaryFingerprint string         `db:"primary_fingerprint"`
	AllFingerprints    string         `db:"all_fingerprints"`
	AllLongids         string         `db:"all_longids"`
	Passphrase         sql.NullString `db:"passphrase"`
	Source             string         `db:"source"`
}

type recipientRow struct {
	Email    string         `db:"email"`
	Name     sql.NullString `db:"name"`
	LastUsed sql.NullInt64  `db:"last_used"`
}

type pubKeyRow struct {
	RecipientEmail     string        `db:"recipient_email"`
	Armored            string        `db:"armored"`
	PrimaryFingerprint string        `db:"primary_fingerprint"`
	AllFingerprints    string        `db:"all_fingerprints"`
	AllLongids         string        `db:"all_longids"`
	LastSig            sql.NullInt64 `db:"last_sig"`
	Created            int64         `db:"created"`
	Expiration         sql.NullInt64 `db:"expiration"`
	Emails             string        `db:"emails"`
}

type userRow struct {
	Email    string         `db:"email"`
	Name     string         `db:"name"`
	IsActive bool           `db:"is_active"`
	IMAP     sql.NullString `db:"imap"`
	SMTP     sql.NullString `db:"smtp"`
}

func (d *DB) readKeys(ctx context.Context) ([]models.KeyRecord, error) {
	var rows []keyRow
	err := d.db.SelectContext(ctx, &rows, `SELECT private, public, longid, primary_fingerprint,
		all_fingerprints, all_longids, passphrase, source FROM key_info ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select key_info: %w", err)
	}

	out := make([]models.KeyRecord, 0, len(rows))
	for _, r := range rows {
		k := models.KeyRecord{
			Private:            r.Private,
			Public:             r.Public,
			Longid:             r.Longid,
			PrimaryFingerprint: r.PrimaryFingerprint,
			Passphrase:         r.Passphrase.String,
			Source:             models.KeySource(r.Source),
		}
		if err := unmarshalList(r.AllFingerprints, &k.AllFingerprints); err != nil {
			return nil, err
		}
		if err := unmarshalList(r.AllLongids, &k.AllLongids); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func (d *DB) readRecipients(ctx context.Context) ([]models.RecipientRecord, error) {
	keys, err := d.readPubKeys(ctx)
	if err != nil {
		return nil, err
	}

	var rows []recipientRow
	if err := d.db.SelectContext(ctx, &rows, `SELECT email, name, last_used FROM recipients ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("failed to select recipients: %w", err)
	}

	out := make([]models.RecipientRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.RecipientRecord{
			Email:    r.Email,
			Name:     r.Name.String,
			LastUsed: unixPtr(r.LastUsed),
			PubKeys:  keys[r.Email],
		})
	}
	return out, nil
}

func (d *DB) readPubKeys(ctx context.Context) (map[string][]models.PubKeyRecord, error) {
	var rows []pubKeyRow
	err := d.db.SelectContext(ctx, &rows, `SELECT recipient_email, armored, primary_fingerprint, all_fingerprints,
		all_longids, last_sig, created, expiration, emails FROM pub_keys ORDER BY recipient_email, position, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pub_keys: %w", err)
	}

	out := make(map[string][]models.PubKeyRecord)
	for _, r := range rows {
		k := models.PubKeyRecord{
			Armored:            r.Armored,
			PrimaryFingerprint: r.PrimaryFingerprint,
			LastSig:            unixPtr(r.LastSig),
			Created:            time.Unix(r.Created, 0).UTC(),
			Expiration:         unixPtr(r.Expiration),
		}
		if err := unmarshalList(r.AllFingerprints, &k.AllFingerprints); err != nil {
			return nil, err
		}
		if err := unmarshalList(r.AllLongids, &k.AllLongids); err != nil {
			return nil, err
		}
		if err := unmarshalList(r.Emails, &k.Emails); err != nil {
			return nil, err
		}
		out[r.RecipientEmail] = append(out[r.RecipientEmail], k)
	}
	return out, nil
}

func (d *DB) readUsers(ctx context.Context) ([]models.UserRecord, error) {
	var rows []userRow
	if err := d.db.SelectContext(ctx, &rows, `SELECT email, name, is_active, imap, smtp FROM users ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}

	out := make([]models.UserRecord, 0, len(rows))
	for _, r := range rows {
		u := models.UserRecord{Email: r.Email, Name: r.Name, IsActive: r.IsActive}
		var err error
		if u.IMAP, err = unmarshalSession(r.IMAP); err != nil {
			return nil, err
		}
		if u.SMTP, err = unmarshalSession(r.SMTP); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func unmarshalList(s string, dst *[]string) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("failed to decode list column: %w", err)
	}
	return nil
}

func unmarshalSession(s sql.NullString) (*models.SessionRecord, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var sess models.SessionRecord
	if err := json.Unmarshal([]byte(s.String), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session column: %w", err)
	}
	return &sess, nil
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
