// Package migrations embeds the goose migrations of the encrypted store.
//
// Version 1 creates the key, recipient, pub key and metadata tables.
// Version 2 adds the users table.
package migrations

import "embed"

// Latest is the schema version new stores are created at.
const Latest int64 = 2

//go:embed *.sql
var Migrations embed.FS
