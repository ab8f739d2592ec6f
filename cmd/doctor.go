package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/relaycat/internal/config"
	"github.com/nextlevelbuilder/relaycat/internal/housekeeping"
	"github.com/nextlevelbuilder/relaycat/internal/store/sqlstore"
	"github.com/nextlevelbuilder/relaycat/internal/upgrade"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("relaycat doctor")
	fmt.Printf("  Version:  %s (schema %d)\n", Version, upgrade.RequiredSchemaVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults + env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	fmt.Printf("  Hash:     %s\n", cfg.Hash())
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Problems: %s\n", err)
	}

	fmt.Println()
	fmt.Println("  Telegram:")
	fmt.Printf("    %-12s %s\n", "Token:", maskSecret(cfg.Telegram.Token))
	if cfg.Telegram.OperatorID != 0 {
		fmt.Printf("    %-12s %d\n", "Operator:", cfg.Telegram.OperatorID)
	} else {
		fmt.Printf("    %-12s (not configured)\n", "Operator:")
	}
	if cfg.Telegram.Proxy != "" {
		fmt.Printf("    %-12s %s\n", "Proxy:", cfg.Telegram.Proxy)
	}
	fmt.Printf("    %-12s %d\n", "Workers:", cfg.Telegram.WorkerCount())

	checkDatabase(cfg)

	fmt.Println()
	fmt.Println("  Admin API:")
	if cfg.HTTP.Enabled {
		fmt.Printf("    %-12s %s\n", "Listen:", cfg.HTTP.Addr())
		fmt.Printf("    %-12s %s\n", "Token:", maskSecret(cfg.HTTP.Token))
		fmt.Printf("    %-12s %s\n", "Login:", yesNo(cfg.HTTP.Password != "" && cfg.HTTP.JWTSecret != ""))
	} else {
		fmt.Printf("    %-12s disabled\n", "Status:")
	}

	fmt.Println()
	fmt.Println("  Routes:")
	fmt.Printf("    %-12s %s\n", "TTL:", cfg.Routes.TTL())
	fmt.Printf("    %-12s %d\n", "Max:", cfg.Routes.MaxEntries)
	sched := cfg.Routes.PruneSchedule
	switch {
	case sched == "":
		fmt.Printf("    %-12s disabled\n", "Schedule:")
	case housekeeping.ValidateSchedule(sched) != nil:
		fmt.Printf("    %-12s %q (INVALID)\n", "Schedule:", sched)
	default:
		fmt.Printf("    %-12s %s\n", "Schedule:", sched)
	}

	if cfg.Telemetry.Enabled {
		fmt.Println()
		fmt.Printf("  Telemetry: %s (%s)\n", cfg.Telemetry.Endpoint, cfg.Telemetry.Protocol)
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkDatabase(cfg *config.Config) {
	sc := storeConfig(cfg)
	fmt.Println()
	fmt.Println("  Database:")
	fmt.Printf("    %-12s %s\n", "Driver:", sc.Driver)
	if sc.Driver == sqlstore.DriverSQLite {
		fmt.Printf("    %-12s %s\n", "Path:", sc.DSN)
	}

	db, err := sqlstore.OpenDB(sc.Driver, sc.DSN)
	if err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
		return
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := upgrade.CheckSchema(ctx, db)
	switch {
	case err != nil:
		fmt.Printf("    %-12s CHECK FAILED (%s)\n", "Schema:", err)
		return
	case s.Dirty:
		fmt.Printf("    %-12s v%d (DIRTY, run: relaycat migrate force %d)\n", "Schema:", s.CurrentVersion, s.CurrentVersion-1)
		return
	case s.Compatible:
		fmt.Printf("    %-12s v%d (up to date)\n", "Schema:", s.CurrentVersion)
	case s.CurrentVersion > s.RequiredVersion:
		fmt.Printf("    %-12s v%d (binary too old, requires v%d)\n", "Schema:", s.CurrentVersion, s.RequiredVersion)
		return
	default:
		fmt.Printf("    %-12s v%d (upgrade needed, run: relaycat upgrade)\n", "Schema:", s.CurrentVersion)
		return
	}

	if pending, err := upgrade.PendingHooks(ctx, db); err == nil {
		if len(pending) > 0 {
			fmt.Printf("    %-12s %d pending\n", "Data hooks:", len(pending))
		} else {
			fmt.Printf("    %-12s all applied\n", "Data hooks:")
		}
	}

	stores := sqlstore.NewStores(db)
	if st, err := stores.Users.Stats(ctx); err == nil {
		fmt.Printf("    %-12s %d (%d verified, %d banned)\n", "Users:", st.Total, st.Verified, st.Banned)
	}
	if n, err := stores.Rules.Count(ctx); err == nil {
		fmt.Printf("    %-12s %d\n", "Rules:", n)
	}
	if n, err := stores.Routes.Count(ctx); err == nil {
		fmt.Printf("    %-12s %d\n", "Routes:", n)
	}
}

// maskSecret keeps the first and last four characters of long secrets.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not configured)"
	case len(s) <= 12:
		return strings.Repeat("*", len(s))
	default:
		return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
	}
}
