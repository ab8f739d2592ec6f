package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// UserStore implements store.UserStore.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userSelectCols = `id, username, first_name, last_name, verified, banned, created_at, updated_at`

func (s *UserStore) Upsert(ctx context.Context, u *store.User) (*store.User, error) {
	ts := now()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, first_name, last_name, verified, banned, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   username = excluded.username,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   updated_at = excluded.updated_at
		 RETURNING `+userSelectCols,
		u.ID, u.Username, u.FirstName, u.LastName, false, false, ts, ts)
	out, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return out, nil
}

func (s *UserStore) Get(ctx context.Context, id int64) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userSelectCols+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *UserStore) SetVerified(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET verified = ?, updated_at = ? WHERE id = ? AND verified = ?`,
		true, now(), id, false)
	if err != nil {
		return false, fmt.Errorf("verify user %d: %w", id, err)
	}
	return s.changedOrMissing(ctx, res, id)
}

func (s *UserStore) SetBanned(ctx context.Context, id int64, banned bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET banned = ?, updated_at = ? WHERE id = ? AND banned = ?`,
		banned, now(), id, !banned)
	if err != nil {
		return false, fmt.Errorf("set banned for user %d: %w", id, err)
	}
	return s.changedOrMissing(ctx, res, id)
}

// changedOrMissing distinguishes "no-op" from "no such user" after a guarded update.
func (s *UserStore) changedOrMissing(ctx context.Context, res sql.Result, id int64) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]store.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userSelectCols+` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (s *UserStore) ListBanned(ctx context.Context) ([]store.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE banned = ? ORDER BY updated_at DESC, id DESC`, true)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (s *UserStore) Stats(ctx context.Context) (store.UserStats, error) {
	var st store.UserStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN verified = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN banned = ? THEN 1 ELSE 0 END), 0)
		 FROM users`, true, true).Scan(&st.Total, &st.Verified, &st.Banned)
	if err != nil {
		return st, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Verified, &u.Banned, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]store.User, error) {
	defer rows.Close()
	var out []store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
