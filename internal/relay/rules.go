package relay

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// Decision is the rule engine verdict for one message.
type Decision struct {
	Action string      // store.ActionAllow, ActionBlock or ActionDrop
	Rule   *store.Rule // matching rule; nil for defaults and the command pre-filter
}

// RuleEngine evaluates active rules against inbound messages, first match wins.
type RuleEngine struct {
	rules      store.RuleStore
	operatorID int64

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
	invalid  map[string]bool
}

// NewRuleEngine creates an engine reading rules from rs on every evaluation,
// so dashboard edits take effect immediately.
func NewRuleEngine(rs store.RuleStore, operatorID int64) *RuleEngine {
	return &RuleEngine{
		rules:      rs,
		operatorID: operatorID,
		compiled:   make(map[string]*regexp.Regexp),
		invalid:    make(map[string]bool),
	}
}

// Evaluate returns the action for msg. Commands from anyone but the operator
// are dropped before rules run. A store failure is returned as an error.
func (e *RuleEngine) Evaluate(ctx context.Context, msg *Message) (Decision, error) {
	if strings.HasPrefix(msg.Text, "/") && (msg.From == nil || msg.From.ID != e.operatorID) {
		return Decision{Action: store.ActionDrop}, nil
	}

	rules, err := e.rules.ListActive(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("load rules: %w", err)
	}

	for i := range rules {
		r := &rules[i]
		if e.matches(r, msg) {
			return Decision{Action: r.Action, Rule: r}, nil
		}
	}
	return Decision{Action: store.ActionAllow}, nil
}

func (e *RuleEngine) matches(r *store.Rule, msg *Message) bool {
	switch store.NormalizeRuleType(r.Type) {
	case store.RuleContent:
		re := e.regexp(r)
		return re != nil && re.MatchString(msg.Content())

	case store.RuleSenderName:
		re := e.regexp(r)
		if re == nil || msg.From == nil {
			return false
		}
		return re.MatchString(msg.From.Username) || re.MatchString(msg.From.FullName())

	case store.RuleIsForwarded:
		want, err := strconv.ParseBool(strings.TrimSpace(r.Pattern))
		return err == nil && want && msg.Forwarded

	default:
		slog.Debug("relay: unknown rule type skipped", "rule_id", r.ID, "rule_type", r.Type)
		return false
	}
}

// regexp returns the cached compiled pattern, or nil if it does not compile.
// Each broken pattern is logged once.
func (e *RuleEngine) regexp(r *store.Rule) *regexp.Regexp {
	e.mu.Lock()
	defer e.mu.Unlock()

	if re, ok := e.compiled[r.Pattern]; ok {
		return re
	}
	if e.invalid[r.Pattern] {
		return nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		e.invalid[r.Pattern] = true
		slog.Warn("relay: invalid rule pattern skipped", "rule_id", r.ID, "pattern", r.Pattern, "error", err)
		return nil
	}
	e.compiled[r.Pattern] = re
	return re
}
