// Package metadata stores small unencrypted settings of the encrypted store.
// The only value written today is the storage key verifier.
package metadata

import (
	"context"
)

// KeyCheckName is the metadata key holding the storage key verifier.
const KeyCheckName = "key_check"

type Repository interface {
	// Get returns (nil, nil) when name is absent.
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error

	// KeyCheck returns the stored key verifier, or nil on a new file.
	KeyCheck(ctx context.Context) ([]byte, error)
	SetKeyCheck(ctx context.Context, verifier []byte) error
}
