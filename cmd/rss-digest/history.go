package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/rss-digest/internal/lark"
	"github.com/ryosukesatoh/rss-digest/internal/runner"
)

func newSyncHistoryCmd() *cobra.Command {
	var archivesDir string

	cmd := &cobra.Command{
		Use:   "sync-history",
		Short: "Parse archived digests and sync their articles to Lark",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.cfg.SyncEnabled() {
				return errors.New("LARK_APP_TOKEN and LARK_TABLE_ID are required for sync-history")
			}
			dir := a.cfg.ArchivesDir
			if archivesDir != "" {
				dir = archivesDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			syncer := lark.NewSyncer(a.cfg.Lark, a.logger)
			created, skipped, err := runner.SyncHistory(ctx, dir, a.cfg.Location(), syncer, a.logger)
			a.logger.Info("history sync completed", "created", created, "skipped", skipped)
			return err
		},
	}

	cmd.Flags().StringVar(&archivesDir, "archives-dir", "", "archives directory (default from config)")
	return cmd
}
