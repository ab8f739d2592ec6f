package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// SettingStore implements store.SettingStore.
type SettingStore struct {
	db *DB
}

func NewSettingStore(db *DB) *SettingStore {
	return &SettingStore{db: db}
}

func (s *SettingStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

func (s *SettingStore) Set(ctx context.Context, key, value, description string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, description) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		   value = excluded.value,
		   description = CASE WHEN excluded.description = '' THEN settings.description ELSE excluded.description END`,
		key, value, description)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *SettingStore) List(ctx context.Context) ([]store.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, description FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []store.Setting
	for rows.Next() {
		var st store.Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.Description); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
