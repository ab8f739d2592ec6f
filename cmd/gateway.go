package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/relaycat/internal/channels"
	"github.com/nextlevelbuilder/relaycat/internal/channels/telegram"
	"github.com/nextlevelbuilder/relaycat/internal/config"
	"github.com/nextlevelbuilder/relaycat/internal/housekeeping"
	httpapi "github.com/nextlevelbuilder/relaycat/internal/http"
	"github.com/nextlevelbuilder/relaycat/internal/relay"
	"github.com/nextlevelbuilder/relaycat/internal/store/sqlstore"
	"github.com/nextlevelbuilder/relaycat/internal/tracing"
	"github.com/nextlevelbuilder/relaycat/internal/upgrade"
)

func runGateway() {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
		fmt.Println()
		if _, statErr := os.Stat(cfgPath); os.IsNotExist(statErr) {
			fmt.Println("No configuration found. Run the setup wizard:  relaycat onboard")
		} else {
			fmt.Println("Set the missing values in the environment or .env, or re-run:  relaycat onboard")
		}
		os.Exit(1)
	}
	if err := housekeeping.ValidateSchedule(cfg.Routes.PruneSchedule); err != nil {
		slog.Error("invalid routes.prune_schedule", "error", err)
		os.Exit(1)
	}

	if err := serve(cfg); err != nil {
		slog.Error("relaycat stopped with error", "error", err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	sc := storeConfig(cfg)
	stores, db, err := sqlstore.Open(sc)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "driver", sc.Driver)

	if err := ensureSchema(ctx, db, sc.Driver, sc.DSN); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(reg)

	tg, err := telegram.New(cfg.Telegram)
	if err != nil {
		return fmt.Errorf("create telegram channel: %w", err)
	}

	opts := []relay.Option{relay.WithMetrics(metrics)}
	if rl := cfg.Relay.RateLimit; rl.Enabled {
		opts = append(opts, relay.WithLimiter(channels.NewSenderRateLimiter(rl.MaxEvents, rl.Window())))
		slog.Info("sender rate limiting enabled", "max_events", rl.MaxEvents, "window", rl.Window())
	}
	r := relay.New(relay.Config{
		OperatorID:   cfg.Telegram.OperatorID,
		AllowBots:    cfg.Telegram.AllowBots,
		ChallengeTTL: cfg.Relay.ChallengeTTL(),
	}, tg, stores, opts...)
	tg.SetHandler(r)

	mgr := channels.NewManager()
	mgr.RegisterChannel(tg)
	if err := mgr.StartAll(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Enabled {
		srv := httpapi.NewServer(cfg.HTTP, stores,
			httpapi.WithGatherer(reg),
			httpapi.WithPinger(db),
		)
		g.Go(func() error { return srv.Run(gctx) })
	}

	pruner := housekeeping.New(cfg.Routes, stores.Routes, r.Challenges())
	g.Go(func() error { return pruner.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		mgr.StopAll(stopCtx)
		return nil
	})

	slog.Info("relaycat running", "version", Version, "operator_id", cfg.Telegram.OperatorID, "admin_api", cfg.HTTP.Enabled)
	err = g.Wait()
	slog.Info("relaycat shut down")
	return err
}

// ensureSchema refuses to start on an incompatible schema. SQLite databases
// are migrated automatically; Postgres only with --auto-migrate.
func ensureSchema(ctx context.Context, db *sqlstore.DB, driver, dsn string) error {
	s, err := upgrade.CheckSchema(ctx, db)
	if err != nil {
		return err
	}

	if s.NeedsMigration && !s.Dirty && (driver == sqlstore.DriverSQLite || autoMigrate || envTrue("RELAYCAT_AUTO_MIGRATE")) {
		v, err := sqlstore.MigrateUp(driver, dsn, resolveMigrationsDir())
		if err != nil {
			return err
		}
		slog.Info("schema migrated", "version", v)
		if s, err = upgrade.CheckSchema(ctx, db); err != nil {
			return err
		}
	}

	if err := s.Err(); err != nil {
		fmt.Fprint(os.Stderr, upgrade.FormatError(s))
		return err
	}

	n, err := upgrade.RunPendingHooks(ctx, db)
	if err != nil {
		return fmt.Errorf("data hooks: %w", err)
	}
	if n > 0 {
		slog.Info("data hooks applied", "count", n)
	}
	return nil
}
