package store

import "errors"

// ErrNotFound is returned when a lookup by key finds no row.
var ErrNotFound = errors.New("not found")

// Stores is the top-level container for all storage backends.
type Stores struct {
	Users    UserStore
	Rules    RuleStore
	Routes   RouteStore
	Settings SettingStore
}

// StoreConfig selects and configures the SQL backend.
type StoreConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}
