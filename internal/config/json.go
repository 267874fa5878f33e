package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/pgpkeeper/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	DataDir         string `json:"data_dir"`
	EncryptedDBName string `json:"encrypted_db_name"`
	LegacyDBPath    string `json:"legacy_db_path"`
	KeyFile         string `json:"key_file"`
	LogLevel        string `json:"log_level"`
}

// parseJson overlays cfg with values loaded from the JSON file named by
// -c/--config in args. Without that flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	overlay(&cfg.DataDir, jc.DataDir)
	overlay(&cfg.EncryptedDBName, jc.EncryptedDBName)
	overlay(&cfg.LegacyDBPath, jc.LegacyDBPath)
	overlay(&cfg.KeyFile, jc.KeyFile)
	overlay(&cfg.LogLevel, jc.LogLevel)
	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
