package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/rss-digest/internal/publisher"
)

func newServeCmd() *cobra.Command {
	var noWeb bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			cfg, logger := a.cfg, a.logger

			var extra []publisher.Publisher
			var webPub *publisher.WebPublisher
			if !noWeb {
				webPub = publisher.NewWebPublisher(cfg.Web.Addr, logger)
				extra = append(extra, webPub)
			}

			r, err := a.newRunner(extra...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runOnce := func(trigger string) {
				logger.Info("running digest", "trigger", trigger)
				if err := r.Run(ctx); err != nil {
					logger.Error("run failed", "trigger", trigger, "error", err)
				}
			}

			c := cron.New(
				cron.WithLocation(cfg.Location()),
				cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
			)
			if _, err := c.AddFunc(cfg.Schedule, func() { runOnce("cron") }); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
			}

			if webPub != nil {
				if err := webPub.Start(); err != nil {
					return err
				}
			}

			if cfg.RunOnStart {
				runOnce("startup")
			}

			c.Start()
			logger.Info("scheduled digest", "schedule", cfg.Schedule, "timezone", cfg.Timezone)

			<-ctx.Done()
			logger.Info("shutting down")

			// An in-flight run still publishes what it has before exiting.
			<-c.Stop().Done()

			if webPub != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := webPub.Shutdown(shutdownCtx); err != nil {
					logger.Error("web server shutdown error", "error", err)
				}
			}

			logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWeb, "no-web", false, "do not serve the latest digest over HTTP")
	return cmd
}
