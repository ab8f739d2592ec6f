package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/relaycat/internal/housekeeping"
	"github.com/nextlevelbuilder/relaycat/internal/store/sqlstore"
)

func routesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Reply route housekeeping",
	}
	cmd.AddCommand(routesPruneCmd())
	cmd.AddCommand(routesCountCmd())
	return cmd
}

func routesPruneCmd() *cobra.Command {
	var (
		ttlHours   int
		maxEntries int
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete expired routes and trim the table to its maximum size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ttl-hours") {
				cfg.Routes.TTLHours = ttlHours
			}
			if cmd.Flags().Changed("max-entries") {
				cfg.Routes.MaxEntries = maxEntries
			}

			stores, db, err := sqlstore.Open(storeConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			res, err := housekeeping.New(cfg.Routes, stores.Routes, nil).RunOnce(ctx)
			if err != nil {
				return err
			}
			left, _ := stores.Routes.Count(ctx)
			fmt.Printf("Expired: %d, trimmed: %d, remaining: %d\n", res.Expired, res.Trimmed, left)
			return nil
		},
	}
	cmd.Flags().IntVar(&ttlHours, "ttl-hours", 0, "override routes.ttl_hours (0 keeps routes forever)")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 0, "override routes.max_entries (0 disables trimming)")
	return cmd
}

func routesCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, db, err := openStores()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := stores.Routes.Count(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}
