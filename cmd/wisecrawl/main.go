package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/cache"
	"github.com/VandeeFeng/wisecrawl/internal/config"
	"github.com/VandeeFeng/wisecrawl/internal/digest"
	"github.com/VandeeFeng/wisecrawl/internal/feedgen"
	"github.com/VandeeFeng/wisecrawl/internal/fetcher"
	"github.com/VandeeFeng/wisecrawl/internal/llm"
	"github.com/VandeeFeng/wisecrawl/internal/notify"
	"github.com/VandeeFeng/wisecrawl/internal/pipeline"
	"github.com/VandeeFeng/wisecrawl/internal/server"
	"github.com/VandeeFeng/wisecrawl/internal/snapshot"
	"github.com/VandeeFeng/wisecrawl/internal/source"
	"github.com/VandeeFeng/wisecrawl/internal/summarizer"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wisecrawl",
		Short: "Hot-news aggregation, enrichment and digest pipeline",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one collection/enrichment/digest batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch()
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest batch over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBatch() error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("starting batch run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := snapshot.NewStore(cfg.DataDir, logger)
	if err != nil {
		return err
	}

	summaryCache, err := openCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("open summary cache: %w", err)
	}
	defer summaryCache.Close()

	usage := llm.NewUsageTracker()
	summaryClient := llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.APIKey, usage)
	digestModel := cfg.LLM.DigestModel
	if digestModel == "" {
		digestModel = cfg.LLM.Model
	}
	digestClient := llm.NewClient(cfg.LLM.Endpoint, digestModel, cfg.LLM.APIKey, usage)

	hotspot := source.NewHotspot(cfg.Hotspot.BaseURL, cfg.Hotspot.NameMap, logger)
	if len(cfg.Hotspot.Boards) > 0 {
		if err := hotspot.HealthCheck(ctx); err != nil {
			return fmt.Errorf("aborting run: %w", err)
		}
	}

	var tw *source.Twitter
	if cfg.Twitter.Enabled {
		tw = source.NewTwitter(cfg.Twitter.ArchiveBase, logger)
	}
	collector := source.NewCollector(hotspot, source.NewRSS(logger), tw, logger)

	now := time.Now()
	windowStart := startOfDay(now).AddDate(0, 0, -cfg.FilterDays)

	raw := collector.Collect(ctx, source.CollectOptions{
		Boards:     cfg.Hotspot.Boards,
		BoardLimit: cfg.Hotspot.Limit,
		Feeds:      cfg.RSS.Feeds,
		Cutoff:     windowStart,
		TweetDays:  cfg.Twitter.Days,
	})
	if len(raw) == 0 {
		return fmt.Errorf("no articles collected")
	}
	if _, err := store.Save(snapshot.StageRaw, raw); err != nil {
		logger.Warn("raw snapshot failed", zap.Error(err))
	}

	filtered := pipeline.FilterRecent(raw, windowStart, now, logger)
	if _, err := store.Save(snapshot.StageFiltered, filtered); err != nil {
		logger.Warn("filtered snapshot failed", zap.Error(err))
	}

	merged := pipeline.Dedupe(filtered, cfg.PreferredSources, logger)
	if _, err := store.Save(snapshot.StageMerged, merged); err != nil {
		logger.Warn("merged snapshot failed", zap.Error(err))
	}

	enricher := pipeline.NewEnricher(
		fetcher.New(logger),
		summarizer.New(summaryClient, summaryCache, logger),
		cfg.Workers, logger)
	processed := enricher.Enrich(ctx, merged, cfg.TechOnly)

	if _, err := store.Save(snapshot.StageProcessed, processed); err != nil {
		logger.Warn("processed snapshot failed", zap.Error(err))
	}
	if err := store.UpdateMerged(processed); err != nil {
		logger.Warn("merged snapshot rewrite failed", zap.Error(err))
	}

	gen := digest.New(digestClient, cfg.DataDir, cfg.Hotspot.NameMap, cfg.TechOnly, logger)
	markdown := gen.Generate(ctx, processed)
	if markdown != "" {
		dispatcher := notify.NewDispatcher(logger, buildNotifiers(cfg.Notify)...)
		msg := notify.Format(markdown, cfg.TechOnly, now)
		if !dispatcher.Send(ctx, msg) {
			logger.Warn("all notification channels failed")
		}
	}

	usage.Log(logger)
	if err := store.Cleanup(time.Duration(cfg.RetentionDays) * 24 * time.Hour); err != nil {
		logger.Warn("snapshot cleanup failed", zap.Error(err))
	}
	logger.Info("batch run finished", zap.Int("articles", len(processed)))
	return nil
}

func runServer() error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	store, err := snapshot.NewStore(cfg.DataDir, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server.Addr, store, cfg.DataDir, feedgen.Options{
		Title:       cfg.Feed.Title,
		Link:        cfg.Feed.Link,
		Description: cfg.Feed.Description,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func openCache(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemory(), nil
	case "badger":
		return cache.NewBadger(cfg.BadgerPath)
	case "redis":
		return cache.NewRedis(cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func buildNotifiers(cfg config.NotifyConfig) []notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.WebhookURL))
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		notifiers = append(notifiers, notify.NewTelegram(cfg.Telegram.APIHost, cfg.Telegram.Token, cfg.Telegram.ChatID))
	}
	if cfg.BarkPush != "" {
		notifiers = append(notifiers, notify.NewBark(cfg.BarkPush))
	}
	return notifiers
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
