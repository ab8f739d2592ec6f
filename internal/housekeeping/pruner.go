// Package housekeeping bounds the route table and the in-memory challenge
// store on a cron schedule.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/relaycat/internal/config"
	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// Sweeper drops expired in-memory entries and returns how many went.
type Sweeper interface {
	Sweep() int
}

// Result reports what one prune pass removed.
type Result struct {
	Expired    int64 // routes older than the TTL
	Trimmed    int64 // routes over the max entry count
	Challenges int   // expired challenges
}

// Pruner applies route retention and sweeps expired challenges.
type Pruner struct {
	routes     store.RouteStore
	challenges Sweeper
	ttl        time.Duration
	maxEntries int
	schedule   string
	now        func() time.Time

	mu      sync.Mutex
	running bool
}

// New creates a pruner. challenges may be nil.
func New(cfg config.RoutesConfig, routes store.RouteStore, challenges Sweeper) *Pruner {
	return &Pruner{
		routes:     routes,
		challenges: challenges,
		ttl:        cfg.TTL(),
		maxEntries: cfg.MaxEntries,
		schedule:   cfg.PruneSchedule,
		now:        time.Now,
	}
}

// ValidateSchedule reports whether expr is a cron expression gronx accepts.
// An empty expression disables scheduling and is valid.
func ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if !gronx.New().IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q", expr)
	}
	return nil
}

// RunOnce performs a single prune pass. Overlapping calls are skipped.
func (p *Pruner) RunOnce(ctx context.Context) (Result, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return Result{}, nil
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	var res Result
	if p.challenges != nil {
		res.Challenges = p.challenges.Sweep()
	}

	if p.ttl > 0 {
		n, err := p.routes.PruneOlderThan(ctx, p.now().UTC().Add(-p.ttl))
		if err != nil {
			return res, fmt.Errorf("prune expired routes: %w", err)
		}
		res.Expired = n
	}
	if p.maxEntries > 0 {
		n, err := p.routes.TrimTo(ctx, p.maxEntries)
		if err != nil {
			return res, fmt.Errorf("trim routes: %w", err)
		}
		res.Trimmed = n
	}
	return res, nil
}

// Run executes prune passes on the configured schedule until ctx is done.
// It returns immediately when no schedule is set.
func (p *Pruner) Run(ctx context.Context) error {
	if p.schedule == "" {
		slog.Info("housekeeping: route pruning schedule disabled")
		return nil
	}
	if err := ValidateSchedule(p.schedule); err != nil {
		return err
	}
	slog.Info("housekeeping: route pruning scheduled", "cron", p.schedule, "ttl", p.ttl, "max_entries", p.maxEntries)

	for {
		next, err := gronx.NextTickAfter(p.schedule, p.now(), false)
		if err != nil {
			return fmt.Errorf("next prune tick: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		res, err := p.RunOnce(ctx)
		if err != nil {
			slog.Error("housekeeping: prune failed", "error", err)
			continue
		}
		slog.Info("housekeeping: prune done",
			"expired_routes", res.Expired,
			"trimmed_routes", res.Trimmed,
			"expired_challenges", res.Challenges,
		)
	}
}
