package telegram

import (
	"errors"
	"strings"

	"github.com/mymmrac/telego/telegoapi"

	"github.com/nextlevelbuilder/relaycat/internal/relay"
)

// Bot API descriptions that mean the destination does not exist.
var notFoundMarkers = []string{
	"chat not found",
	"user not found",
	"message to copy not found",
	"message to forward not found",
	"message to edit not found",
	"message to react not found",
	"peer_id_invalid",
}

// classify wraps a Bot API failure in a relay.DeliveryError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &relay.DeliveryError{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) relay.DeliveryKind {
	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		return relay.KindTransport
	}
	if apiErr.ErrorCode == 403 {
		return relay.KindForbidden
	}
	if apiErr.ErrorCode == 400 {
		desc := strings.ToLower(apiErr.Description)
		for _, m := range notFoundMarkers {
			if strings.Contains(desc, m) {
				return relay.KindTargetNotFound
			}
		}
	}
	return relay.KindTransport
}
