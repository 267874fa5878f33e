// Package migration moves data from the plaintext legacy database into the
// encrypted store, exactly once, and applies pending schema upgrades. It runs
// at startup before anything else touches storage.
package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/filex"
	"github.com/dmitrijs2005/pgpkeeper/internal/legacy"
	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/store"
)

type State int

const (
	NotNeeded State = iota
	LegacyToEncrypted
	SchemaUpgrade
)

func (s State) String() string {
	switch s {
	case NotNeeded:
		return "not-needed"
	case LegacyToEncrypted:
		return "legacy-to-encrypted"
	case SchemaUpgrade:
		return "schema-upgrade"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Manager struct {
	store      *store.Store
	legacyPath string
	log        logging.Logger
	done       bool
}

func NewManager(st *store.Store, legacyPath string, log logging.Logger) *Manager {
	return &Manager{store: st, legacyPath: legacyPath, log: log.With("component", "migration")}
}

// PerformMigrationIfNeeded brings storage to a state where exactly one
// encrypted store exists. Calls after a successful one return NotNeeded.
//
// Errors wrapping common.ErrKeyUnavailable, common.ErrWrongEncryptionKey or
// common.ErrLegacyNotRemoved are fatal. Other errors leave the legacy file in
// place so the next start retries.
func (m *Manager) PerformMigrationIfNeeded(ctx context.Context) (State, error) {
	if m.done {
		return NotNeeded, nil
	}
	state, err := m.run(ctx)
	if err != nil {
		return state, err
	}
	m.done = true
	m.log.Info(ctx, "storage ready", "state", state.String())
	return state, nil
}

func (m *Manager) run(ctx context.Context) (State, error) {
	legacyExists, err := filex.Exists(m.legacyPath)
	if err != nil {
		return NotNeeded, err
	}
	encryptedExists, err := filex.Exists(m.store.Path())
	if err != nil {
		return NotNeeded, err
	}

	if !legacyExists {
		return m.upgradeExisting(ctx, encryptedExists)
	}
	if encryptedExists {
		m.log.Warn(ctx, "legacy database ignored, encrypted store already exists", "legacy", m.legacyPath)
		return m.upgradeExisting(ctx, true)
	}
	return m.migrateLegacy(ctx)
}

// upgradeExisting opens an existing encrypted store so pending schema
// migrations run now rather than on first use.
func (m *Manager) upgradeExisting(ctx context.Context, exists bool) (State, error) {
	if !exists {
		return NotNeeded, nil
	}
	if err := m.store.Open(ctx); err != nil {
		return NotNeeded, err
	}
	if from, to := m.store.SchemaChange(); from != to {
		return SchemaUpgrade, nil
	}
	return NotNeeded, nil
}

func (m *Manager) migrateLegacy(ctx context.Context) (State, error) {
	snap, err := m.readLegacy(ctx)
	if errors.Is(err, common.ErrLegacyCorrupt) {
		m.log.Warn(ctx, "legacy database is unreadable, wiping storage", "legacy", m.legacyPath, "error", err)
		return NotNeeded, m.wipe()
	}
	if err != nil {
		return NotNeeded, err
	}

	want := expectedCounts(snap)
	if err := m.copy(ctx, snap); err != nil {
		return NotNeeded, m.discardCopy(fmt.Errorf("failed to copy legacy records: %w", err))
	}
	if err := m.verify(ctx, want); err != nil {
		return NotNeeded, m.discardCopy(err)
	}

	if err := store.DestroyFiles(m.legacyPath); err != nil {
		return LegacyToEncrypted, fmt.Errorf("%w: %w", common.ErrLegacyNotRemoved, err)
	}
	m.log.Info(ctx, "legacy database migrated",
		"keys", want.Keys, "recipients", want.Recipients, "pub_keys", want.PubKeys, "users", want.Users)
	return LegacyToEncrypted, nil
}

func (m *Manager) readLegacy(ctx context.Context) (*legacy.Snapshot, error) {
	db, err := legacy.Open(ctx, m.legacyPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.Read(ctx)
}

func (m *Manager) copy(ctx context.Context, snap *legacy.Snapshot) error {
	return m.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		for _, k := range snap.Keys {
			if err := tx.AddKey(ctx, k); err != nil {
				return err
			}
		}
		for _, r := range snap.Recipients {
			if err := tx.PutRecipient(ctx, r); err != nil {
				return err
			}
		}
		for _, u := range snap.Users {
			if err := tx.PutUser(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// verify reopens the new file and checks that every record arrived.
func (m *Manager) verify(ctx context.Context, want store.Counts) error {
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("failed to close encrypted store: %w", err)
	}
	got, err := m.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to reopen encrypted store: %w", err)
	}
	if got != want {
		return fmt.Errorf("encrypted copy is incomplete: got %+v, want %+v", got, want)
	}
	return nil
}

// discardCopy removes a partial encrypted file so the next start retries
// from the legacy database.
func (m *Manager) discardCopy(cause error) error {
	_ = m.store.Close()
	if err := store.DestroyFiles(m.store.Path()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (m *Manager) wipe() error {
	_ = m.store.Close()
	var errs []error
	if err := store.DestroyFiles(m.store.Path()); err != nil {
		errs = append(errs, err)
	}
	if err := store.DestroyFiles(m.legacyPath); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", common.ErrLegacyNotRemoved, err))
	}
	return errors.Join(errs...)
}

func expectedCounts(snap *legacy.Snapshot) store.Counts {
	c := store.Counts{Keys: len(snap.Keys), Recipients: len(snap.Recipients), Users: len(snap.Users)}
	for _, r := range snap.Recipients {
		c.PubKeys += len(r.PubKeys)
	}
	return c
}
