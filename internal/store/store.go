// Package store is the encrypted record store: one SQLite file whose rows
// are sealed with keys derived from the storage encryption key.
//
// The file is opened lazily on first use. Every mutation runs inside Write,
// which commits when the callback returns nil and rolls back otherwise.
// Reads are available on both Store and Tx; inside Write, read through the
// Tx, since the pool holds a single connection.
package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/pgpkeeper/internal/dbx"
	"github.com/dmitrijs2005/pgpkeeper/internal/filex"
	"github.com/dmitrijs2005/pgpkeeper/internal/keychain"
	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/migrations"
	"github.com/dmitrijs2005/pgpkeeper/internal/repositories/repomanager"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

type Option func(*Store)

// WithSchemaVersion sets the schema version the file is migrated to on open.
func WithSchemaVersion(v int64) Option {
	return func(s *Store) { s.targetVersion = v }
}

func WithRepositoryManager(m repomanager.RepositoryManager) Option {
	return func(s *Store) { s.repos = m }
}

type Store struct {
	path          string
	holder        keychain.KeyHolder
	log           logging.Logger
	repos         repomanager.RepositoryManager
	targetVersion int64

	mu          sync.Mutex
	db          *sql.DB
	keys        *cryptox.Keys
	fromVersion int64
}

// New returns a store for the file at path. Nothing is read or created
// until the first operation.
func New(path string, holder keychain.KeyHolder, log logging.Logger, opts ...Option) *Store {
	s := &Store{
		path:          path,
		holder:        holder,
		log:           log.With("component", "store"),
		repos:         repomanager.NewSQLiteRepositoryManager(),
		targetVersion: migrations.Latest,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Path() string { return s.path }

// Open forces the lazy open. It fails with common.ErrKeyUnavailable when
// the key holder has no key and common.ErrWrongEncryptionKey when the file
// was created under another key.
func (s *Store) Open(ctx context.Context) error {
	_, _, err := s.handle(ctx)
	return err
}

func (s *Store) handle(ctx context.Context) (*sql.DB, *cryptox.Keys, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, s.keys, nil
	}
	db, keys, err := s.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.db, s.keys = db, keys
	return db, keys, nil
}

func (s *Store) open(ctx context.Context) (*sql.DB, *cryptox.Keys, error) {
	// Fetch the key before touching the file: a missing key must not leave
	// an empty database behind.
	master, err := s.holder.StorageEncryptionKey(ctx)
	if err != nil {
		if errors.Is(err, common.ErrKeyUnavailable) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}
	keys, err := cryptox.DeriveKeys(master)
	common.WipeByteArray(master)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}

	if err := filex.EnsureDir(filepath.Dir(s.path)); err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)

	from, err := s.repos.RunMigrations(ctx, db, s.targetVersion)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err := s.checkKey(ctx, db, keys); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	s.fromVersion = from
	if from != s.targetVersion {
		s.log.Info(ctx, "schema migrated", "from", from, "to", s.targetVersion)
	}
	return db, keys, nil
}

func (s *Store) checkKey(ctx context.Context, db *sql.DB, keys *cryptox.Keys) error {
	want := cryptox.MakeVerifier(keys.Index)

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := s.repos.Metadata(tx)
		got, err := meta.KeyCheck(ctx)
		if err != nil {
			return err
		}
		if got == nil {
			return meta.SetKeyCheck(ctx, want)
		}
		if subtle.ConstantTimeCompare(got, want) != 1 {
			return common.ErrWrongEncryptionKey
		}
		return nil
	})
}

// SchemaChange reports the schema version the file had before this process
// opened it and the version it has now. Both are zero before the first open.
func (s *Store) SchemaChange() (from, to int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, 0
	}
	return s.fromVersion, s.targetVersion
}

func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	db, _, err := s.handle(ctx)
	if err != nil {
		return 0, err
	}
	return s.repos.SchemaVersion(ctx, db)
}

// Close releases the database handle. The store can be reopened afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.keys = nil
	return err
}

// Write runs fn in a transaction. A nil return commits; an error or panic
// rolls back.
func (s *Store) Write(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	db, keys, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, q dbx.DBTX) error {
		return fn(ctx, s.bind(q, keys))
	})
}

func (s *Store) read(ctx context.Context) (*Tx, error) {
	db, keys, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return s.bind(db, keys), nil
}

func (s *Store) bind(q dbx.DBTX, keys *cryptox.Keys) *Tx {
	return &Tx{
		keys:       keys,
		keyRows:    s.repos.Keys(q),
		recipients: s.repos.Recipients(q),
		pubKeys:    s.repos.PubKeys(q),
		users:      s.repos.Users(q),
	}
}

// DestroyFiles removes the database file at path together with its SQLite
// sidecar files. Missing files are ignored.
func DestroyFiles(path string) error {
	var errs []error
	for _, p := range append([]string{path}, sidecars(path)...) {
		if _, err := filex.RemoveIfExists(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sidecars(path string) []string {
	out := make([]string, 0, len(sidecarSuffixes))
	for _, sfx := range sidecarSuffixes {
		out = append(out, path+sfx)
	}
	return out
}
