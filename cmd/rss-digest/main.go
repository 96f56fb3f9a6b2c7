package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/rss-digest/internal/config"
	"github.com/ryosukesatoh/rss-digest/internal/content"
	"github.com/ryosukesatoh/rss-digest/internal/fetcher"
	"github.com/ryosukesatoh/rss-digest/internal/lark"
	"github.com/ryosukesatoh/rss-digest/internal/llm"
	"github.com/ryosukesatoh/rss-digest/internal/logging"
	"github.com/ryosukesatoh/rss-digest/internal/publisher"
	"github.com/ryosukesatoh/rss-digest/internal/report"
	"github.com/ryosukesatoh/rss-digest/internal/runner"
	"github.com/ryosukesatoh/rss-digest/internal/summarizer"
)

const feedTimeout = 30 * time.Second

var (
	configPath string
	envFile    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rss-digest",
		Short: "Summarise RSS subscriptions into a daily Markdown digest",
		Long: `rss-digest reads an OPML subscription list, collects the articles published
in the last time window, summarises each one with an LLM and writes a daily
Markdown digest. Summaries can optionally be synced to a Lark Bitable table.

Example usage:
  rss-digest run                 # one pass, then exit
  rss-digest serve               # run on the configured cron schedule
  rss-digest sync-history        # push archived digests to Lark`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file; environment variables override it")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newRunCmd(), newServeCmd(), newSyncHistoryCmd())
	return root
}

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	logClose io.Closer
}

func (a *app) Close() error {
	return a.logClose.Close()
}

// setup loads configuration and logging. Any error here happens before the
// network is touched.
func setup() (*app, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, closer := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	logger.Info("configuration loaded",
		"provider", cfg.LLM.Provider,
		"time_window_hours", cfg.TimeWindowHours,
		"timezone", cfg.Timezone,
		"workers", cfg.Summarizer.Workers,
		"lark_sync", cfg.SyncEnabled(),
	)
	return &app{cfg: cfg, logger: logger, logClose: closer}, nil
}

// newRunner wires the pipeline. extra publishers are appended after the
// archive and README publishers.
func (a *app) newRunner(extra ...publisher.Publisher) (*runner.Runner, error) {
	cfg := a.cfg

	client, err := llm.New(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	resolver, err := content.New(cfg)
	if err != nil {
		return nil, err
	}

	orch := summarizer.New(client, resolver, summarizer.Options{
		Delay:   cfg.Delay(),
		Workers: cfg.Summarizer.Workers,
	}, a.logger)

	pubs := []publisher.Publisher{
		publisher.NewArchivePublisher(cfg.ArchivesDir, a.logger),
		publisher.NewReadmePublisher(cfg.ReadmePath, cfg.ArchivesDir, report.ReadmeOptions{
			OPMLPath: cfg.OPMLPath,
			Schedule: cfg.Schedule,
			Timezone: cfg.Timezone,
			Provider: providerLabel(cfg),
		}, a.logger),
	}
	pubs = append(pubs, extra...)

	var syncer runner.Syncer
	if cfg.SyncEnabled() {
		syncer = lark.NewSyncer(cfg.Lark, a.logger)
	}

	return runner.New(runner.Options{
		OPMLPath: cfg.OPMLPath,
		Window:   cfg.TimeWindow(),
		Location: cfg.Location(),
		Timeout:  cfg.RunTimeout,
	}, fetcher.NewRSSFetcher(feedTimeout, a.logger), orch, pubs, syncer, a.logger), nil
}

func providerLabel(cfg *config.Config) string {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return "Gemini (" + cfg.LLM.Gemini.Model + ")"
	case config.ProviderDeepSeek:
		return "DeepSeek (" + cfg.LLM.DeepSeek.Model + ")"
	default:
		return cfg.LLM.Provider
	}
}
