package upgrade

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/relaycat/internal/store"
	"github.com/nextlevelbuilder/relaycat/internal/store/sqlstore"
)

// Data migration hooks are registered here.
// Add new hooks when a schema migration requires Go-based data transformation.

// DefaultRules is the starter filter set installed on a fresh database.
var DefaultRules = []store.Rule{
	{Type: store.RuleContent, Pattern: `(兼职|刷单|日结|加V|VX|微信|卖茶|投资|理财|USDT|BTC)`, Action: store.ActionBlock, Priority: store.DefaultRulePriority, Active: true},
	{Type: store.RuleContent, Pattern: `(http|https)://(t\.me|telegram\.me)/`, Action: store.ActionBlock, Priority: store.DefaultRulePriority, Active: true},
	{Type: store.RuleSenderName, Pattern: senderNameSeedPattern, Action: store.ActionBlock, Priority: store.DefaultRulePriority, Active: true},
}

// Sender name rules also see display names, so the seed only matches whole
// words: "my_bot" and "Support Team" hit, "Talbot" does not.
const (
	senderNameSeedPattern = `(?i)(^|[^\pL])(bot|admin|support|service)([^\pL]|$)`
	legacySenderNameSeed  = `(bot|admin|support|service)`
)

func init() {
	RegisterDataHook(1, "001_seed_default_rules", seedDefaultRules)
	RegisterDataHook(1, "002_anchor_sender_name_seed", anchorSenderNameSeed)
}

// seedDefaultRules only seeds an empty rules table; operators who already
// curated their own list keep it untouched.
func seedDefaultRules(ctx context.Context, db *sqlstore.DB) error {
	rules := sqlstore.NewRuleStore(db)
	n, err := rules.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, r := range DefaultRules {
		r := r
		if err := rules.Create(ctx, &r); err != nil {
			return fmt.Errorf("seed rule %q: %w", r.Pattern, err)
		}
	}
	return nil
}

// anchorSenderNameSeed rewrites the unanchored seed pattern left by earlier
// releases. Operator-edited rules are left alone.
func anchorSenderNameSeed(ctx context.Context, db *sqlstore.DB) error {
	_, err := db.ExecContext(ctx,
		`UPDATE rules SET pattern = ? WHERE rule_type IN (?, ?) AND pattern = ?`,
		senderNameSeedPattern, store.RuleSenderName, "username", legacySenderNameSeed)
	if err != nil {
		return fmt.Errorf("anchor sender name seed: %w", err)
	}
	return nil
}
