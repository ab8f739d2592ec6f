package relay

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// Reply target sources, in resolution order.
const (
	SourceRoute    = "route"
	SourceCardText = "card_text"
	SourceForward  = "forward_origin"
)

var cardIDPattern = regexp.MustCompile(`ID:\s*(\d+)`)

// Target is the user an operator reply should reach.
type Target struct {
	UserID        int64
	UserMessageID int64 // 0 when only the user is known
	Source        string
}

// Resolver maps a message in the operator chat back to the user it came from.
type Resolver struct {
	routes store.RouteStore
}

func NewResolver(routes store.RouteStore) *Resolver {
	return &Resolver{routes: routes}
}

// Resolve tries the route table, then an "ID: <n>" line in the text or
// caption, then the forward origin. ok is false when nothing matched.
func (r *Resolver) Resolve(ctx context.Context, replied *Message) (Target, bool, error) {
	if replied == nil {
		return Target{}, false, nil
	}

	route, err := r.routes.Lookup(ctx, replied.ID)
	switch {
	case err == nil:
		return Target{UserID: route.UserID, UserMessageID: route.UserMessageID, Source: SourceRoute}, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return Target{}, false, fmt.Errorf("resolve reply target: %w", err)
	}

	if m := cardIDPattern.FindStringSubmatch(replied.Content()); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return Target{UserID: id, Source: SourceCardText}, true, nil
		}
	}

	if replied.ForwardFromUserID != 0 {
		return Target{UserID: replied.ForwardFromUserID, Source: SourceForward}, true, nil
	}

	return Target{}, false, nil
}
