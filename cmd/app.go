package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/vocab/internal/config"
	"github.com/abhisek/vocab/internal/logger"
	"github.com/abhisek/vocab/internal/review"
	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/abhisek/vocab/internal/store"
	"github.com/spf13/cobra"
)

// app bundles the dependencies a command needs.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	ctrl    *review.Controller
	days    review.DayReader
	history review.HistoryReader // nil for backends without a review log.
	prune   func(context.Context) error
	loc     *time.Location
	closers []func() error
}

// openApp loads configuration, opens the configured backend and builds the
// review controller.
func openApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if m, _ := cmd.Flags().GetString("log-mode"); m != "" {
		cfg.LogMode = m
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	sched, err := spacedrep.NewScheduler(cfg.Scheduler)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, loc: loc}
	a.closers = append(a.closers, func() error { log.Sync(); return nil })

	opts := review.Options{
		Scheduler: sched,
		Retry:     cfg.Retry,
		Location:  loc,
		Logger:    log,
	}

	switch cfg.Backend {
	case config.BackendRedis:
		rs, err := store.NewRedisStore(cmd.Context(), store.RedisOptions{
			Addr:    cfg.Redis.Addr,
			Prefix:  cfg.Redis.Prefix,
			MinEase: cfg.Scheduler.MinEase,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		opts.States = rs
		opts.Days = rs
		a.days = rs
	default:
		dbPath, err := resolveDBPath(cmd, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		days, hist := st.DayRepo(), st.HistoryRepo()
		opts.States = st.StateRepo().WithMinEase(cfg.Scheduler.MinEase)
		opts.Days = days
		opts.History = hist
		a.days = days
		a.history = hist
		a.prune = hist.Prune
	}

	a.ctrl, err = review.NewController(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Debug("app opened", "backend", cfg.Backend, "timezone", loc.String())
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// now returns the current time. Commands read the clock only here.
func (a *app) now() time.Time {
	return time.Now()
}
