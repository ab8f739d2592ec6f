package config

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Config is the root configuration for the RelayCat bot.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Database  DatabaseConfig  `json:"database"`
	HTTP      HTTPConfig      `json:"http"`
	Relay     RelayConfig     `json:"relay"`
	Routes    RoutesConfig    `json:"routes"`
	Log       LogConfig       `json:"log,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	mu        sync.RWMutex
}

// DatabaseConfig selects the persistence backend.
// URL is NEVER read from config.json when it carries credentials — prefer env RELAYCAT_DB_URL.
type DatabaseConfig struct {
	URL     string `json:"url,omitempty"`      // "postgres://..." or "sqlite://path"; empty = SQLite under DataDir
	DataDir string `json:"data_dir,omitempty"` // default "./data"
}

// Driver returns "postgres" or "sqlite" based on the URL scheme.
func (d DatabaseConfig) Driver() string {
	u := strings.ToLower(d.URL)
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver() == "postgres" {
		return d.URL
	}
	path := d.URL
	for _, prefix := range []string{"sqlite+aiosqlite:///", "sqlite:///", "sqlite://", "file:"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if path == "" {
		dir := d.DataDir
		if dir == "" {
			dir = "./data"
		}
		path = strings.TrimRight(dir, "/") + "/relaycat.db"
	}
	return ExpandHome(path)
}

// HTTPConfig configures the admin API consumed by the dashboard.
type HTTPConfig struct {
	Enabled   bool   `json:"enabled"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Token     string `json:"-"` // static bearer token, env RELAYCAT_HTTP_TOKEN only
	Password  string `json:"-"` // dashboard login password, env RELAYCAT_ADMIN_PASSWORD only
	JWTSecret string `json:"-"` // HS256 signing key, env RELAYCAT_SECRET_KEY only
	JWTTTLMin int    `json:"jwt_ttl_min,omitempty"` // login token lifetime in minutes (default 720)
}

// Addr returns host:port for the listener.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// JWTTTL returns the login token lifetime.
func (h HTTPConfig) JWTTTL() time.Duration {
	if h.JWTTTLMin <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(h.JWTTTLMin) * time.Minute
}

// RelayConfig tunes the relay gates.
type RelayConfig struct {
	ChallengeTTLSec int             `json:"challenge_ttl_sec,omitempty"` // default 600
	RateLimit       RateLimitConfig `json:"rate_limit"`
}

// ChallengeTTL returns how long a verification challenge stays valid.
func (r RelayConfig) ChallengeTTL() time.Duration {
	if r.ChallengeTTLSec <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(r.ChallengeTTLSec) * time.Second
}

// RateLimitConfig bounds how many updates one sender may push through the relay.
type RateLimitConfig struct {
	Enabled   bool `json:"enabled"`
	MaxEvents int  `json:"max_events,omitempty"` // default 30
	WindowSec int  `json:"window_sec,omitempty"` // default 10
}

// Window returns the refill window.
func (r RateLimitConfig) Window() time.Duration {
	if r.WindowSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.WindowSec) * time.Second
}

// RoutesConfig controls housekeeping of the message route table.
type RoutesConfig struct {
	TTLHours      int    `json:"ttl_hours,omitempty"`      // default 168 (7 days), 0 after defaults = keep forever
	MaxEntries    int    `json:"max_entries,omitempty"`    // default 20000
	PruneSchedule string `json:"prune_schedule,omitempty"` // cron expression, "" disables scheduled pruning
}

// TTL returns the route retention period.
func (r RoutesConfig) TTL() time.Duration {
	return time.Duration(r.TTLHours) * time.Hour
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // "debug", "info" (default), "warn", "error"
	Format string `json:"format,omitempty"` // "text" (default) or "json"
}

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext connection for local collectors
	ServiceName string            `json:"service_name,omitempty"` // default "relaycat"
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens for cloud backends)
}

// Validate reports settings the relay cannot start without.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram.token (RELAYCAT_BOT_TOKEN)")
	}
	if c.Telegram.OperatorID == 0 {
		missing = append(missing, "telegram.operator_id (RELAYCAT_ADMIN_ID)")
	}
	if c.HTTP.Enabled && c.HTTP.Token == "" && (c.HTTP.Password == "" || c.HTTP.JWTSecret == "") {
		missing = append(missing, "http auth (RELAYCAT_HTTP_TOKEN or RELAYCAT_ADMIN_PASSWORD + RELAYCAT_SECRET_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
