package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// RouteStore implements store.RouteStore.
type RouteStore struct {
	db *DB
}

func NewRouteStore(db *DB) *RouteStore {
	return &RouteStore{db: db}
}

func (s *RouteStore) Record(ctx context.Context, r *store.MessageRoute) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO message_routes (user_id, user_message_id, admin_message_id, created_at)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		r.UserID, r.UserMessageID, r.AdminMessageID, r.CreatedAt.UTC()).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("record route: %w", err)
	}
	return nil
}

func (s *RouteStore) Lookup(ctx context.Context, adminMessageID int64) (*store.MessageRoute, error) {
	var r store.MessageRoute
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, user_message_id, admin_message_id, created_at
		 FROM message_routes WHERE admin_message_id = ? ORDER BY id DESC LIMIT 1`,
		adminMessageID).Scan(&r.ID, &r.UserID, &r.UserMessageID, &r.AdminMessageID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup route: %w", err)
	}
	return &r, nil
}

func (s *RouteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_routes`).Scan(&n)
	return n, err
}

func (s *RouteStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM message_routes WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune routes: %w", err)
	}
	return res.RowsAffected()
}

func (s *RouteStore) TrimTo(ctx context.Context, max int) (int64, error) {
	if max <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM message_routes WHERE id NOT IN (
		   SELECT id FROM (SELECT id FROM message_routes ORDER BY id DESC LIMIT ?) AS keep
		 )`, max)
	if err != nil {
		return 0, fmt.Errorf("trim routes: %w", err)
	}
	return res.RowsAffected()
}
