// Package config loads runtime configuration for the pgpkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config.
//  3. Command-line flags, which override earlier values.
//  4. The PGPKEEPER_PASSPHRASE environment variable (passphrase only; it is
//     never read from files or flags).
//
// Supported flags
//
//	-d, --data-dir string   directory holding the database and key files
//	--legacy string         path of the plaintext legacy database
//	--key-file string       path of the storage key file
//	--log-level string      debug, info, warn or error
//
// # JSON schema
//
//	{
//	  "data_dir": "/home/me/.config/pgpkeeper",
//	  "encrypted_db_name": "encrypted.db",
//	  "legacy_db_path": "/home/me/.config/pgpkeeper/default.db",
//	  "key_file": "/home/me/.config/pgpkeeper/storage.key",
//	  "log_level": "debug"
//	}
//
// Empty JSON values leave the current setting untouched.
package config
