package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weatherornot/internal/client"
	"github.com/i474232898/weatherornot/internal/dashboard"
	"github.com/i474232898/weatherornot/internal/scheduler"
	"github.com/i474232898/weatherornot/internal/session"
	"github.com/i474232898/weatherornot/internal/store"
)

type dashboardFlags struct {
	backend         string
	local           string
	memory          bool
	defaultLocation string
	refresh         time.Duration
	debug           bool
}

func newDashboardCmd(e *env) *cobra.Command {
	var f dashboardFlags
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive terminal dashboard for saved locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("backend") {
				f.backend = e.cfg.BackendURL
			}
			if !flags.Changed("default-location") {
				f.defaultLocation = e.cfg.DefaultLocation
			}
			if !flags.Changed("refresh") {
				f.refresh = e.cfg.RefreshInterval
			}
			if f.memory && f.local != "" {
				return errors.New("--memory and --local are mutually exclusive")
			}
			return runDashboard(cmd.Context(), e, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.backend, "backend", "", "backend API base URL (default $BACKEND_URL)")
	flags.StringVar(&f.local, "local", "", "keep saved locations in this SQLite file and query providers directly")
	flags.BoolVar(&f.memory, "memory", false, "keep saved locations in memory only and query providers directly")
	flags.StringVar(&f.defaultLocation, "default-location", "", "location to open at start (default $DEFAULT_LOCATION)")
	flags.DurationVar(&f.refresh, "refresh", 0, "auto-refresh interval, 0 disables (default $REFRESH_INTERVAL)")
	flags.BoolVar(&f.debug, "debug", false, "dump full state on 'show'")
	return cmd
}

func runDashboard(ctx context.Context, e *env, f dashboardFlags) error {
	cfg, log := e.cfg, e.logger

	var (
		persist session.Persistence
		lookup  session.Weather
	)
	switch {
	case f.memory:
		persist = store.Names{Store: store.NewMemoryStore(0)}
		lookup = newWeatherService(cfg, log)
	case f.local != "":
		st, err := store.NewSQLite(ctx, f.local, log)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.local, err)
		}
		defer st.Close()
		persist = store.Names{Store: st}
		lookup = newWeatherService(cfg, log)
	default:
		// The backend may walk several providers with retries; leave room for that.
		c := client.New(f.backend, &http.Client{Timeout: 3 * cfg.HTTPTimeout})
		persist, lookup = c, c
	}

	ctrl := session.New(ctx, persist, lookup, log, session.Options{
		FetchTimeout:   3 * cfg.HTTPTimeout,
		PersistTimeout: cfg.PersistTimeout,
	})
	defer ctrl.Close()

	if f.defaultLocation != "" {
		ctrl.Select(f.defaultLocation)
	}

	sched := scheduler.New(f.refresh, ctrl, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start auto-refresh: %w", err)
	}
	defer sched.Stop()

	err := dashboard.New(ctrl, os.Stdout, f.debug).Run(ctx, os.Stdin)
	if errors.Is(err, context.Canceled) {
		log.Debug("interrupted")
		return nil
	}
	return err
}
