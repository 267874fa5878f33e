// Package keychain supplies the storage encryption key. The key must be
// stable across restarts of the same installation: losing it is the same as
// losing every stored key and contact.
package keychain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/pgpkeeper/internal/common"
	"github.com/dmitrijs2005/pgpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/pgpkeeper/internal/filex"
)

const saltSize = 16

// KeyHolder returns the storage encryption key. Implementations return an
// error wrapping common.ErrKeyUnavailable when no key can be produced.
type KeyHolder interface {
	StorageEncryptionKey(ctx context.Context) ([]byte, error)
}

// FileKeyHolder keeps a random key in a file readable only by the owner.
// With Create set, a missing file is generated on first use; otherwise a
// missing file means the key is unavailable.
type FileKeyHolder struct {
	Path   string
	Create bool
}

func NewFileKeyHolder(path string, create bool) *FileKeyHolder {
	return &FileKeyHolder{Path: path, Create: create}
}

func (h *FileKeyHolder) StorageEncryptionKey(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := os.ReadFile(h.Path)
	switch {
	case err == nil:
		if len(key) != cryptox.KeySize {
			return nil, fmt.Errorf("%w: key file %s has %d bytes", common.ErrKeyUnavailable, h.Path, len(key))
		}
		return key, nil
	case errors.Is(err, fs.ErrNotExist) && h.Create:
		key = common.GenerateRandByteArray(cryptox.KeySize)
		if err := filex.WriteFileAtomic(h.Path, key, 0o600); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
		}
		return key, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: key file %s is missing", common.ErrKeyUnavailable, h.Path)
	default:
		return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}
}

// PassphraseKeyHolder derives the key from a passphrase with argon2id. The
// salt lives in SaltPath and is generated on first use when Create is set.
type PassphraseKeyHolder struct {
	Passphrase []byte
	SaltPath   string
	Create     bool
}

func NewPassphraseKeyHolder(passphrase []byte, saltPath string, create bool) *PassphraseKeyHolder {
	return &PassphraseKeyHolder{Passphrase: passphrase, SaltPath: saltPath, Create: create}
}

func (h *PassphraseKeyHolder) StorageEncryptionKey(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(h.Passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty passphrase", common.ErrKeyUnavailable)
	}

	salt, err := h.salt()
	if err != nil {
		return nil, err
	}
	return cryptox.DeriveMasterKey(h.Passphrase, salt), nil
}

func (h *PassphraseKeyHolder) salt() ([]byte, error) {
	salt, err := os.ReadFile(h.SaltPath)
	switch {
	case err == nil:
		if len(salt) != saltSize {
			return nil, fmt.Errorf("%w: salt file %s has %d bytes", common.ErrKeyUnavailable, h.SaltPath, len(salt))
		}
		return salt, nil
	case errors.Is(err, fs.ErrNotExist) && h.Create:
		salt = common.GenerateRandByteArray(saltSize)
		if err := filex.WriteFileAtomic(h.SaltPath, salt, 0o600); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
		}
		return salt, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: salt file %s is missing", common.ErrKeyUnavailable, h.SaltPath)
	default:
		return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}
}

// StaticKeyHolder returns a fixed key. Nil means unavailable.
type StaticKeyHolder struct {
	Key []byte
}

func (h StaticKeyHolder) StorageEncryptionKey(ctx context.Context) ([]byte, error) {
	if h.Key == nil {
		return nil, common.ErrKeyUnavailable
	}
	return append([]byte(nil), h.Key...), nil
}
