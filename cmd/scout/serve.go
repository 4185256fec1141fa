package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/api"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/jobs"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, job queue and scheduled pipeline",
	Long: `Serve the operator API and run the pipeline on a fixed interval.
Scheduled runs share the cooldown with manual refreshes, so a tick that
lands inside the window is skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		noSchedule, _ := cmd.Flags().GetBool("no-schedule")

		ctx := cmd.Context()
		app, err := newApplication(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		queue := jobs.NewQueue(jobs.Options{
			Workers:     cfg.Jobs.Workers,
			Capacity:    cfg.Jobs.Capacity,
			MaxAttempts: cfg.Jobs.MaxAttempts,
			RetryDelay:  cfg.Jobs.RetryDelay,
			Logger:      app.log.WithField("component", "jobs"),
		})
		server := api.NewServer(api.Options{
			Service:    app.svc,
			Queue:      queue,
			Store:      app.store,
			CronSecret: cfg.HTTP.CronSecret,
			Logger:     app.log.WithField("component", "api"),
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return queue.Run(gctx) })
		g.Go(func() error { return server.ListenAndServe(gctx, cfg.HTTP.Addr) })
		if !noSchedule {
			g.Go(func() error { return runScheduler(gctx, app, cfg.Pipeline.Interval) })
		}

		fmt.Printf("%s listening on %s\n", green("scout"), cfg.HTTP.Addr)
		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		app.log.Info("shutdown complete")
		return err
	},
}

// runScheduler runs the pipeline immediately and then on every tick.
func runScheduler(ctx context.Context, app *application, interval time.Duration) error {
	log := app.log.WithField("component", "scheduler")
	log.WithField("interval", interval).Info("starting pipeline scheduler")

	tick := func() {
		_, err := app.svc.Run(ctx, orchestrator.EntryScheduled)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrRateLimited):
			log.WithError(err).Info("scheduled run skipped")
		default:
			log.WithError(err).Error("scheduled run failed")
		}
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Override HTTP_ADDR")
	serveCmd.Flags().Bool("no-schedule", false, "Disable the ticker-driven pipeline")
	rootCmd.AddCommand(serveCmd)
}
