package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/rss-digest/internal/publisher"
)

func newRunCmd() *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the digest pipeline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			var extra []publisher.Publisher
			if toStdout {
				extra = append(extra, publisher.NewStdoutPublisher())
			}
			r, err := a.newRunner(extra...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := r.Run(ctx); err != nil {
				a.logger.Error("pipeline failed", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "also print the digest to stdout")
	return cmd
}
