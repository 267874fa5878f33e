// Package common defines shared sentinel errors and small helpers used across
// pgpkeeper packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Storage key errors. Both are fatal configuration problems: the store
	// never falls back to plaintext.
	ErrKeyUnavailable     = errors.New("storage encryption key unavailable")
	ErrWrongEncryptionKey = errors.New("storage encryption key does not match database")

	// Migration errors.
	ErrLegacyCorrupt    = errors.New("legacy database is unreadable")
	ErrLegacyNotRemoved = errors.New("legacy database could not be removed after migration")
)
