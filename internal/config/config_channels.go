package config

import "time"

// TelegramConfig configures the bot connection and the operator identity.
type TelegramConfig struct {
	Token             string `json:"token"`
	OperatorID        int64  `json:"operator_id"`                   // Telegram user id of the single operator
	Proxy             string `json:"proxy,omitempty"`               // optional HTTP proxy URL
	PollTimeoutSec    int    `json:"poll_timeout_sec,omitempty"`    // long polling timeout (default 30)
	RequestTimeoutSec int    `json:"request_timeout_sec,omitempty"` // per API call timeout (default 45)
	Workers           int    `json:"workers,omitempty"`             // concurrent update handlers (default 16)
	AllowBots         bool   `json:"allow_bots,omitempty"`          // accept messages sent by other bots (default false)
}

// PollTimeout returns the getUpdates long polling timeout in seconds.
func (t TelegramConfig) PollTimeout() int {
	if t.PollTimeoutSec <= 0 {
		return 30
	}
	return t.PollTimeoutSec
}

// RequestTimeout returns the HTTP client timeout for Bot API calls.
// It must exceed the poll timeout or long polling requests get cut short.
func (t TelegramConfig) RequestTimeout() time.Duration {
	floor := t.PollTimeout() + 5
	if t.RequestTimeoutSec < floor {
		return time.Duration(floor+10) * time.Second
	}
	return time.Duration(t.RequestTimeoutSec) * time.Second
}

// WorkerCount returns the number of updates processed concurrently.
func (t TelegramConfig) WorkerCount() int {
	if t.Workers <= 0 {
		return 16
	}
	return t.Workers
}
