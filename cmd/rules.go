package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage filtering rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesRemoveCmd())
	cmd.AddCommand(rulesToggleCmd("enable", "Activate a rule", true))
	cmd.AddCommand(rulesToggleCmd("disable", "Deactivate a rule without deleting it", false))
	return cmd
}

func rulesListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, db, err := openStores()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			var rules []store.Rule
			if activeOnly {
				rules, err = stores.Rules.ListActive(ctx)
			} else {
				rules, err = stores.Rules.List(ctx)
			}
			if err != nil {
				return fmt.Errorf("list rules: %w", err)
			}
			printRules(rules)
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only show active rules")
	return cmd
}

func printRules(rules []store.Rule) {
	if len(rules) == 0 {
		fmt.Println("No rules.")
		return
	}
	fmt.Printf("%-6s %-8s %-6s %-13s %-6s %s\n", "ID", "PRIORITY", "ACTIVE", "TYPE", "ACTION", "PATTERN")
	for _, r := range rules {
		fmt.Printf("%-6d %-8d %-6s %-13s %-6s %s\n", r.ID, r.Priority, yesNo(r.Active), r.Type, r.Action, r.Pattern)
	}
}

func rulesAddCmd() *cobra.Command {
	var (
		ruleType string
		action   string
		priority int
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "add <pattern>",
		Short: "Add a rule",
		Long: "Add a filtering rule. Types: content, sender_name, is_forwarded. Actions: allow, block, drop.\n" +
			"Patterns are regular expressions (prefix with (?i) to ignore case); is_forwarded rules ignore the pattern.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &store.Rule{
				Type:     ruleType,
				Pattern:  args[0],
				Action:   action,
				Priority: priority,
				Active:   !inactive,
			}
			if err := store.ValidateRule(r); err != nil {
				return err
			}
			if err := store.ValidatePattern(r); err != nil {
				return err
			}

			stores, db, err := openStores()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := stores.Rules.Create(context.Background(), r); err != nil {
				return fmt.Errorf("create rule: %w", err)
			}
			fmt.Printf("Rule %d created.\n", r.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ruleType, "type", "t", store.RuleContent, "rule type")
	cmd.Flags().StringVarP(&action, "action", "a", store.ActionBlock, "rule action")
	cmd.Flags().IntVarP(&priority, "priority", "p", store.DefaultRulePriority, "evaluation priority (lower runs first)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the rule disabled")
	return cmd
}

func rulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stores, db, err := openStores()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := stores.Rules.Delete(context.Background(), id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("rule %d not found", id)
				}
				return err
			}
			fmt.Printf("Rule %d deleted.\n", id)
			return nil
		},
	}
}

func rulesToggleCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stores, db, err := openStores()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := stores.Rules.Update(context.Background(), id, map[string]any{"is_active": active}); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("rule %d not found", id)
				}
				return err
			}
			fmt.Printf("Rule %d %sd.\n", id, use)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
