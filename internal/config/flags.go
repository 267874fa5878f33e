package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/pgpkeeper/internal/flagx"
)

var flagNames = []string{"d", "data-dir", "legacy", "key-file", "log-level"}

// parseFlags populates Config fields from the flags it knows about. Other
// arguments (subcommands, their flags) are filtered out beforehand with
// flagx.FilterArgs, so they never cause a parse error here.
func parseFlags(cfg *Config, args []string) error {
	allowed := make([]string, 0, len(flagNames)*2)
	for _, n := range flagNames {
		allowed = append(allowed, "-"+n, "--"+n)
	}
	filtered := flagx.FilterArgs(args, allowed)

	fs := flag.NewFlagSet("pgpkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LegacyDBPath, "legacy", cfg.LegacyDBPath, "legacy plaintext database path")
	fs.StringVar(&cfg.KeyFile, "key-file", cfg.KeyFile, "storage key file path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
