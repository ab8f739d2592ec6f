package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// RuleStore implements store.RuleStore.
type RuleStore struct {
	db *DB
}

func NewRuleStore(db *DB) *RuleStore {
	return &RuleStore{db: db}
}

const ruleSelectCols = `id, rule_type, pattern, action, priority, is_active, created_at`

func (s *RuleStore) ListActive(ctx context.Context) ([]store.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleSelectCols+` FROM rules WHERE is_active = ? ORDER BY priority ASC, id ASC`, true)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return scanRules(rows)
}

func (s *RuleStore) List(ctx context.Context) ([]store.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleSelectCols+` FROM rules ORDER BY priority ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return scanRules(rows)
}

func (s *RuleStore) Get(ctx context.Context, id int64) (*store.Rule, error) {
	return scanRule(s.db.QueryRowContext(ctx, `SELECT `+ruleSelectCols+` FROM rules WHERE id = ?`, id))
}

func (s *RuleStore) Create(ctx context.Context, r *store.Rule) error {
	if err := store.ValidateRule(r); err != nil {
		return err
	}
	r.CreatedAt = now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO rules (rule_type, pattern, action, priority, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		r.Type, r.Pattern, r.Action, r.Priority, r.Active, r.CreatedAt).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

var ruleUpdatableCols = map[string]bool{
	"rule_type": true,
	"pattern":   true,
	"action":    true,
	"priority":  true,
	"is_active": true,
}

func (s *RuleStore) Update(ctx context.Context, id int64, updates map[string]any) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	// Validate the merged rule so a partial update can't leave it unusable.
	merged := *cur
	keys := make([]string, 0, len(updates))
	for k, v := range updates {
		if !ruleUpdatableCols[k] {
			return fmt.Errorf("%w: field %q is not updatable", store.ErrInvalidRule, k)
		}
		keys = append(keys, k)
		switch k {
		case "rule_type":
			merged.Type, _ = v.(string)
		case "pattern":
			merged.Pattern, _ = v.(string)
		case "action":
			merged.Action, _ = v.(string)
		case "priority":
			n, ok := toInt(v)
			if !ok {
				return fmt.Errorf("%w: priority must be an integer", store.ErrInvalidRule)
			}
			merged.Priority = n
		case "is_active":
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("%w: is_active must be a boolean", store.ErrInvalidRule)
			}
			merged.Active = b
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := store.ValidateRule(&merged); err != nil {
		return err
	}
	sort.Strings(keys)

	var setClauses []string
	var args []any
	for _, k := range keys {
		setClauses = append(setClauses, k+" = ?")
		switch k {
		case "rule_type":
			args = append(args, merged.Type)
		case "pattern":
			args = append(args, merged.Pattern)
		case "action":
			args = append(args, merged.Action)
		case "priority":
			args = append(args, merged.Priority)
		case "is_active":
			args = append(args, merged.Active)
		}
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE rules SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("update rule %d: %w", id, err)
	}
	return nil
}

func (s *RuleStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *RuleStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules`).Scan(&n)
	return n, err
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func scanRule(row rowScanner) (*store.Rule, error) {
	var r store.Rule
	err := row.Scan(&r.ID, &r.Type, &r.Pattern, &r.Action, &r.Priority, &r.Active, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRules(rows *sql.Rows) ([]store.Rule, error) {
	defer rows.Close()
	var out []store.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
