package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nextlevelbuilder/relaycat/internal/config"
	"github.com/nextlevelbuilder/relaycat/internal/store"
	"github.com/nextlevelbuilder/relaycat/internal/store/sqlstore"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the default slog logger. --verbose wins over log.level.
func setupLogging(lc config.LogConfig) {
	level := parseLogLevel(lc.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func storeConfig(cfg *config.Config) store.StoreConfig {
	return store.StoreConfig{
		Driver: cfg.Database.Driver(),
		DSN:    cfg.Database.DSN(),
	}
}

// openStores opens the configured database for one-shot CLI commands.
// The caller closes the returned DB.
func openStores() (*store.Stores, *sqlstore.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return sqlstore.Open(storeConfig(cfg))
}

func envTrue(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
