package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

func newTestDB(t *testing.T) (*store.Stores, *DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "relaycat.db")
	if _, err := MigrateUp(DriverSQLite, dsn, ""); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	stores, db, err := Open(store.StoreConfig{Driver: DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return stores, db
}
