package config

import (
	"os"
	"path/filepath"
)

// PassphraseEnv names the environment variable that switches the storage key
// from a random key file to an argon2id key derived from a passphrase.
const PassphraseEnv = "PGPKEEPER_PASSPHRASE"

const (
	DefaultEncryptedDBName = "encrypted.db"
	DefaultLegacyDBName    = "default.db"
	DefaultKeyFileName     = "storage.key"
	DefaultSaltFileName    = "storage.salt"
)

// Config holds runtime settings for the pgpkeeper CLI.
//
// LegacyDBPath and KeyFile may be empty, in which case they resolve to
// well-known names inside DataDir.
type Config struct {
	DataDir         string
	EncryptedDBName string
	LegacyDBPath    string
	KeyFile         string
	LogLevel        string

	Passphrase string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.EncryptedDBName = DefaultEncryptedDBName
	c.LegacyDBPath = ""
	c.KeyFile = ""
	c.LogLevel = "info"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "pgpkeeper")
	}
	return ".pgpkeeper"
}

// EncryptedDBPath is the location of the encrypted store.
func (c *Config) EncryptedDBPath() string {
	return filepath.Join(c.DataDir, c.EncryptedDBName)
}

// LegacyPath is the location of the plaintext predecessor database.
func (c *Config) LegacyPath() string {
	if c.LegacyDBPath != "" {
		return c.LegacyDBPath
	}
	return filepath.Join(c.DataDir, DefaultLegacyDBName)
}

// KeyFilePath is where the random storage key is kept.
func (c *Config) KeyFilePath() string {
	if c.KeyFile != "" {
		return c.KeyFile
	}
	return filepath.Join(c.DataDir, DefaultKeyFileName)
}

// SaltFilePath is where the salt for passphrase-derived keys is kept.
func (c *Config) SaltFilePath() string {
	return filepath.Join(c.DataDir, DefaultSaltFileName)
}

// LoadConfig constructs a Config from defaults, then overlays values from
// JSON (if requested) and command-line flags found in args. Later sources
// take precedence over earlier ones. args usually is os.Args[1:].
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.Passphrase = os.Getenv(PassphraseEnv)
	return cfg, nil
}
