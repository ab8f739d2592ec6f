package relay

import (
	"errors"
	"fmt"
)

// ErrChallengeExpired is returned when a verification answer has no matching live challenge.
var ErrChallengeExpired = errors.New("challenge expired")

// DeliveryKind classifies why an outbound call failed.
type DeliveryKind int

const (
	// KindTransport covers network errors, timeouts and unexpected API errors.
	KindTransport DeliveryKind = iota
	// KindForbidden means the recipient blocked the bot or never started it.
	KindForbidden
	// KindTargetNotFound means the chat or message no longer exists.
	KindTargetNotFound
)

func (k DeliveryKind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindTargetNotFound:
		return "target_not_found"
	default:
		return "transport"
	}
}

// DeliveryError wraps a failed Messenger call.
type DeliveryError struct {
	Op   string
	Kind DeliveryKind
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// DeliveryKindOf returns the kind of a delivery error, KindTransport for anything else.
func DeliveryKindOf(err error) DeliveryKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransport
}
