package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataDir: "./data",
		},
		HTTP: HTTPConfig{
			Enabled:   true,
			Host:      "0.0.0.0",
			Port:      8080,
			JWTTTLMin: 720,
		},
		Relay: RelayConfig{
			ChallengeTTLSec: 600,
			RateLimit: RateLimitConfig{
				Enabled:   true,
				MaxEvents: 30,
				WindowSec: 10,
			},
		},
		Routes: RoutesConfig{
			TTLHours:      7 * 24,
			MaxEntries:    20000,
			PruneSchedule: "0 * * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a JSON5 file, then overlays .env and env vars.
// A missing file is not an error: defaults + env are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env next to the config file, then the working directory. Existing env wins.
	envFiles := []string{filepath.Join(filepath.Dir(path), ".env"), ".env"}
	for _, f := range envFiles {
		if _, statErr := os.Stat(f); statErr == nil {
			if loadErr := godotenv.Load(f); loadErr != nil {
				return nil, fmt.Errorf("load %s: %w", f, loadErr)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	// Telegram
	envStr("RELAYCAT_BOT_TOKEN", &c.Telegram.Token)
	if v := os.Getenv("RELAYCAT_ADMIN_ID"); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			c.Telegram.OperatorID = id
		}
	}
	envStr("RELAYCAT_TELEGRAM_PROXY", &c.Telegram.Proxy)
	envBool("RELAYCAT_ALLOW_BOT_INITIATED", &c.Telegram.AllowBots)

	// Database
	envStr("RELAYCAT_DB_URL", &c.Database.URL)
	envStr("RELAYCAT_DATA_DIR", &c.Database.DataDir)

	// Admin API
	envStr("RELAYCAT_HOST", &c.HTTP.Host)
	if v := os.Getenv("RELAYCAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.HTTP.Port = port
		}
	}
	envBool("RELAYCAT_HTTP_ENABLED", &c.HTTP.Enabled)
	envStr("RELAYCAT_HTTP_TOKEN", &c.HTTP.Token)
	envStr("RELAYCAT_ADMIN_PASSWORD", &c.HTTP.Password)
	envStr("RELAYCAT_SECRET_KEY", &c.HTTP.JWTSecret)

	// Relay gates
	envBool("RELAYCAT_RATE_LIMIT_ENABLED", &c.Relay.RateLimit.Enabled)
	envInt("RELAYCAT_RATE_LIMIT_MAX_EVENTS", &c.Relay.RateLimit.MaxEvents)
	envInt("RELAYCAT_RATE_LIMIT_WINDOW_SEC", &c.Relay.RateLimit.WindowSec)
	envInt("RELAYCAT_VERIFICATION_TOKEN_TTL", &c.Relay.ChallengeTTLSec)

	// Routes
	if v := os.Getenv("RELAYCAT_ROUTE_TTL_SECONDS"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec >= 0 {
			c.Routes.TTLHours = sec / 3600
		}
	}
	envInt("RELAYCAT_ROUTE_MAX_ENTRIES", &c.Routes.MaxEntries)
	envStr("RELAYCAT_ROUTE_PRUNE_SCHEDULE", &c.Routes.PruneSchedule)

	// Logging
	envStr("RELAYCAT_LOG_LEVEL", &c.Log.Level)
	envStr("RELAYCAT_LOG_FORMAT", &c.Log.Format)
	if v := os.Getenv("RELAYCAT_DEBUG"); v == "true" || v == "1" {
		c.Log.Level = "debug"
	}

	// Telemetry
	envStr("RELAYCAT_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("RELAYCAT_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("RELAYCAT_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	envBool("RELAYCAT_TELEMETRY_ENABLED", &c.Telemetry.Enabled)
	envBool("RELAYCAT_TELEMETRY_INSECURE", &c.Telemetry.Insecure)
}

// ApplyEnvOverrides re-applies environment variable overrides onto the config.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// Save writes the config to a JSON file. Secret fields carry `json:"-"` and
// the bot token is stripped, so secrets only ever live in env / .env.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	cp := cfg.copyLocked()
	cfg.mu.RUnlock()

	cp.StripSecrets()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) copyLocked() *Config {
	return &Config{
		Telegram:  c.Telegram,
		Database:  c.Database,
		HTTP:      c.HTTP,
		Relay:     c.Relay,
		Routes:    c.Routes,
		Log:       c.Log,
		Telemetry: c.Telemetry,
	}
}

// StripSecrets zeros out all secret fields in the config.
func (c *Config) StripSecrets() {
	c.Telegram.Token = ""
	if c.Database.Driver() == "postgres" {
		c.Database.URL = ""
	}
	c.HTTP.Token = ""
	c.HTTP.Password = ""
	c.HTTP.JWTSecret = ""
	c.Telemetry.Headers = nil
}

// Hash returns a SHA-256 hash of the non-secret config, used by `doctor`.
func (c *Config) Hash() string {
	c.mu.RLock()
	cp := c.copyLocked()
	c.mu.RUnlock()
	cp.StripSecrets()
	data, _ := json.Marshal(cp)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
