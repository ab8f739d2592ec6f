package sqlstore

import (
	"fmt"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// NewStores creates all stores on top of an opened DB.
func NewStores(db *DB) *store.Stores {
	return &store.Stores{
		Users:    NewUserStore(db),
		Rules:    NewRuleStore(db),
		Routes:   NewRouteStore(db),
		Settings: NewSettingStore(db),
	}
}

// Open opens the configured database and builds the stores.
func Open(cfg store.StoreConfig) (*store.Stores, *DB, error) {
	db, err := OpenDB(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	return NewStores(db), db, nil
}
