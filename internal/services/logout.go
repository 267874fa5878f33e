package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/pgpkeeper/internal/filex"
	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
	"github.com/dmitrijs2005/pgpkeeper/internal/store"
)

type LogoutHandler struct {
	store      Storage
	legacyPath string
	log        logging.Logger
}

func NewLogoutHandler(st Storage, legacyPath string, log logging.Logger) *LogoutHandler {
	return &LogoutHandler{store: st, legacyPath: legacyPath, log: log.With("component", "logout")}
}

// LogOut deletes every record from the encrypted store and then removes a
// leftover legacy database. A failure to wipe the store is returned; a
// failure to remove the legacy file is only logged.
func (h *LogoutHandler) LogOut(ctx context.Context) error {
	err := h.store.Write(ctx, func(ctx context.Context, tx *store.Tx) error {
		return tx.DeleteAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to wipe encrypted store: %w", err)
	}

	if h.legacyPath == "" || filepath.Clean(h.legacyPath) == filepath.Clean(h.store.Path()) {
		return nil
	}
	ok, err := filex.Exists(h.legacyPath)
	if err != nil {
		h.log.Warn(ctx, "cannot inspect legacy database", "path", h.legacyPath, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	if err := store.DestroyFiles(h.legacyPath); err != nil {
		h.log.Warn(ctx, "failed to remove legacy database", "path", h.legacyPath, "error", err)
		return nil
	}
	h.log.Info(ctx, "legacy database removed", "path", h.legacyPath)
	return nil
}
