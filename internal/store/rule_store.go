package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Rule types.
const (
	RuleContent     = "content"
	RuleSenderName  = "sender_name"
	RuleIsForwarded = "is_forwarded"
)

// Rule actions.
const (
	ActionAllow = "allow"
	ActionBlock = "block"
	ActionDrop  = "drop"
)

// ErrInvalidRule is wrapped by every rule validation failure.
var ErrInvalidRule = errors.New("invalid rule")

// DefaultRulePriority is used when a request omits the priority.
const DefaultRulePriority = 100

// Rule is an operator-defined filter evaluated against inbound user messages.
// Active rules are evaluated by ascending Priority, then ascending ID.
type Rule struct {
	ID        int64     `json:"id"`
	Type      string    `json:"rule_type"`
	Pattern   string    `json:"pattern"`
	Action    string    `json:"action"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeRuleType maps legacy names onto the canonical rule types.
func NormalizeRuleType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case RuleContent, "message_content":
		return RuleContent
	case RuleSenderName, "username":
		return RuleSenderName
	case RuleIsForwarded:
		return RuleIsForwarded
	default:
		return strings.ToLower(strings.TrimSpace(t))
	}
}

// ValidateRule normalizes the type and action. Priority is kept as given;
// callers decoding operator input apply DefaultRulePriority when it is absent.
func ValidateRule(r *Rule) error {
	r.Type = NormalizeRuleType(r.Type)
	switch r.Type {
	case RuleContent, RuleSenderName, RuleIsForwarded:
	default:
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, r.Type)
	}
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	switch r.Action {
	case ActionAllow, ActionBlock, ActionDrop:
	default:
		return fmt.Errorf("%w: unknown rule action %q", ErrInvalidRule, r.Action)
	}
	if r.Pattern == "" {
		return fmt.Errorf("%w: pattern is required", ErrInvalidRule)
	}
	return nil
}

// ValidatePattern checks that a regex rule compiles. Stores accept broken
// patterns (the engine skips them); callers taking operator input use this
// to reject them up front.
func ValidatePattern(r *Rule) error {
	if NormalizeRuleType(r.Type) == RuleIsForwarded {
		return nil
	}
	if _, err := regexp.Compile(r.Pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

// RuleStore persists filtering rules.
type RuleStore interface {
	// ListActive returns active rules in evaluation order.
	ListActive(ctx context.Context) ([]Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Get(ctx context.Context, id int64) (*Rule, error)
	Create(ctx context.Context, r *Rule) error
	// Update applies a partial update. Allowed keys: rule_type, pattern, action, priority, is_active.
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}
