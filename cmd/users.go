package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/relaycat/internal/store"
	"github.com/nextlevelbuilder/relaycat/internal/store/sqlstore"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect users and manage the ban list",
	}
	cmd.AddCommand(usersListCmd())
	cmd.AddCommand(usersBanCmd("ban", "Ban a user", true))
	cmd.AddCommand(usersBanCmd("unban", "Lift a ban", false))
	return cmd
}

func usersListCmd() *cobra.Command {
	var (
		limit      int
		offset     int
		bannedOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, db, err := openStores()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			var users []store.User
			if bannedOnly {
				users, err = stores.Users.ListBanned(ctx)
			} else {
				users, err = stores.Users.List(ctx, limit, offset)
			}
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			st, err := stores.Users.Stats(ctx)
			if err != nil {
				return fmt.Errorf("user stats: %w", err)
			}
			printUsers(users)
			fmt.Printf("\nTotal: %d, verified: %d, banned: %d\n", st.Total, st.Verified, st.Banned)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().BoolVar(&bannedOnly, "banned", false, "only show banned users")
	return cmd
}

func printUsers(users []store.User) {
	if len(users) == 0 {
		fmt.Println("No users.")
		return
	}
	fmt.Printf("%-14s %-20s %-24s %-8s %-6s %s\n", "ID", "USERNAME", "NAME", "VERIFIED", "BANNED", "LAST SEEN")
	for _, u := range users {
		username := "-"
		if u.Username != "" {
			username = "@" + u.Username
		}
		fmt.Printf("%-14d %-20s %-24s %-8s %-6s %s\n",
			u.ID, username, u.FullName(), yesNo(u.Verified), yesNo(u.Banned),
			u.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func usersBanCmd(use, short string, banned bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if banned && id == cfg.Telegram.OperatorID {
				return errors.New("refusing to ban the operator")
			}
			stores, db, err := sqlstore.Open(storeConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			changed, err := stores.Users.SetBanned(context.Background(), id, banned)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("unknown user %d", id)
			}
			if err != nil {
				return err
			}
			switch {
			case changed && banned:
				fmt.Printf("User %d banned.\n", id)
			case changed:
				fmt.Printf("User %d unbanned.\n", id)
			case banned:
				fmt.Printf("User %d was already banned.\n", id)
			default:
				fmt.Printf("User %d was not banned.\n", id)
			}
			return nil
		},
	}
}
