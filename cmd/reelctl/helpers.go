package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/abelbrown/reel/internal/config"
	"github.com/abelbrown/reel/internal/store"
)

// loadConfig reads the config file plus REEL_* overrides or fatals.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

// openStore opens the configured backend or fatals. The sqlite file lives
// in the data directory unless a DSN is set.
func openStore(ctx context.Context, cfg *config.Config) store.Backend {
	dsn := cfg.Store.DSN
	if cfg.Store.Driver == "sqlite" && dsn == "" {
		if err := os.MkdirAll(config.Dir(), 0755); err != nil {
			log.Fatalf("failed to create data directory: %v", err)
		}
		dsn = config.DBPath()
	}
	b, err := store.OpenBackend(ctx, cfg.Store.Driver, dsn)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	return b
}

// fail prints an error and exits 1.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
