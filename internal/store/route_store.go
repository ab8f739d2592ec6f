package store

import (
	"context"
	"time"
)

// MessageRoute links a message id in the operator chat back to the user
// and the user's original message. Rows are immutable.
type MessageRoute struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	UserMessageID  int64     `json:"user_message_id"`
	AdminMessageID int64     `json:"admin_message_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// RouteStore persists message routes.
type RouteStore interface {
	Record(ctx context.Context, r *MessageRoute) error
	// Lookup returns the newest route for an operator-chat message id, or ErrNotFound.
	Lookup(ctx context.Context, adminMessageID int64) (*MessageRoute, error)
	Count(ctx context.Context) (int, error)
	// PruneOlderThan deletes routes created before cutoff and returns how many went.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// TrimTo keeps only the newest max routes.
	TrimTo(ctx context.Context, max int) (int64, error)
}
