package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/config"
	"github.com/dmitrijs2005/pgpkeeper/internal/filex"
	"github.com/dmitrijs2005/pgpkeeper/internal/keychain"
	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/migration"
	"github.com/dmitrijs2005/pgpkeeper/internal/pgp"
	"github.com/dmitrijs2005/pgpkeeper/internal/services"
	"github.com/dmitrijs2005/pgpkeeper/internal/store"
)

type App struct {
	config *config.Config
	log    logging.Logger
	parser pgp.Parser

	store    *store.Store
	migrator *migration.Manager
	keys     *services.KeyService
	contacts *services.ContactsService
	logout   *services.LogoutHandler
	state    migration.State
}

func NewApp(c *config.Config, log logging.Logger) *App {
	return &App{config: c, log: log, parser: pgp.NewParser()}
}

// IsFatal reports whether err means the storage cannot be used safely and
// the process should end.
func IsFatal(err error) bool {
	return errors.Is(err, common.ErrKeyUnavailable) ||
		errors.Is(err, common.ErrWrongEncryptionKey) ||
		errors.Is(err, common.ErrLegacyNotRemoved)
}

// init wires storage and services from the parsed configuration and runs the
// migration. It is called once, before any command.
func (a *App) init(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	holder, err := a.keyHolder()
	if err != nil {
		return err
	}

	a.store = store.New(a.config.EncryptedDBPath(), holder, a.log)
	a.migrator = migration.NewManager(a.store, a.config.LegacyPath(), a.log)

	a.state, err = a.migrator.PerformMigrationIfNeeded(ctx)
	if err != nil {
		return fmt.Errorf("storage migration failed: %w", err)
	}

	a.keys = services.NewKeyService(a.store, a.log)
	a.contacts = services.NewContactsService(a.store, a.parser, a.log)
	a.logout = services.NewLogoutHandler(a.store, a.config.LegacyPath(), a.log)
	return nil
}

// keyHolder picks the key source. A new key is only generated while no
// encrypted store exists; otherwise a missing key is reported as such.
func (a *App) keyHolder() (keychain.KeyHolder, error) {
	exists, err := filex.Exists(a.config.EncryptedDBPath())
	if err != nil {
		return nil, err
	}
	if a.config.Passphrase != "" {
		return keychain.NewPassphraseKeyHolder([]byte(a.config.Passphrase), a.config.SaltFilePath(), !exists), nil
	}
	return keychain.NewFileKeyHolder(a.config.KeyFilePath(), !exists), nil
}

// Execute runs the command line given in args.
func (a *App) Execute(ctx context.Context, args []string) error {
	cmd := a.Command()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
