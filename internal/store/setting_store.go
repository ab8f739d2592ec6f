package store

import "context"

// Known setting keys.
const (
	SettingConfirmReply = "confirm_reply"
)

// Setting is a key/value pair editable from the dashboard.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// SettingStore persists operator settings.
type SettingStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set creates or overwrites a value. An empty description keeps the stored one.
	Set(ctx context.Context, key, value, description string) error
	List(ctx context.Context) ([]Setting, error)
}

// GetBool reads a boolean setting, returning def when unset or unreadable.
func GetBool(ctx context.Context, s SettingStore, key string, def bool) bool {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	switch v {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return def
}
