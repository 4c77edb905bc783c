package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"SmartPick/internal/collector"
	"SmartPick/internal/config"
	"SmartPick/internal/enricher"
	"SmartPick/internal/logger"
	"SmartPick/internal/metrics"
	"SmartPick/internal/recorder"
	"SmartPick/internal/scanner"
	"SmartPick/internal/store"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	reg      *metrics.Registry
	universe *collector.Universe
	results  *store.Store
	recorder recorder.Recorder
	scanner  *scanner.Scanner

	closers []func() error
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) *app {
	a := &app{cfg: cfg, reg: metrics.NewRegistry()}

	// Quote source, optionally behind a Redis cache
	var fetcher collector.Fetcher = collector.NewEastmoneyFetcher(cfg.Quote.BaseURL, cfg.Quote.Limit, cfg.Quote.Timeout, cfg.Quote.RetryDelay, cfg.Proxy)
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis %s unreachable, quotes will not be cached: %v", cfg.Cache.RedisAddr, err)
		} else {
			fetcher = collector.NewCachingFetcher(rdb, cfg.Cache.TTL, fetcher)
		}
		cancel()
	}
	logger.Info("Quote source: %s", fetcher.Name())

	lister := collector.NewSinaLister(cfg.Universe.ListURL, cfg.Universe.PageSize, cfg.Universe.Timeout, cfg.Proxy)
	a.universe = collector.NewUniverse(lister, cfg.Universe.CacheFile, cfg.Universe.ExcludedPrefix, cfg.Universe.MaxPages)

	var completer enricher.Completer
	if cfg.LLMEnabled() {
		client := enricher.NewChatClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.Timeout, cfg.Proxy)
		completer = enricher.WithBreaker(client, cfg.LLM.BreakerFailures, cfg.LLM.BreakerCooldown)
		logger.Info("LLM enrichment enabled: %s", cfg.LLM.Model)
	} else {
		logger.Warn("LLM_API_KEY not set, candidates will carry default analysis")
	}
	enr := enricher.New(completer, cfg.LLM.BatchSize, cfg.LLM.BatchPause)
	enr.OnFallback = a.reg.ObserveFallback

	a.results = store.New(cfg.Storage.ResultDir)

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Storage.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop: %v", err)
		} else {
			a.recorder = sr
		}
	}
	a.closers = append(a.closers, a.recorder.Close)

	a.scanner = scanner.New(a.universe, fetcher, enr, a.results, a.reg, scanner.Options{
		BatchSize:     cfg.Scan.BatchSize,
		BatchPause:    cfg.Scan.BatchPause,
		MaxCandidates: cfg.Scan.MaxCandidates,
		ProgressEvery: cfg.Scan.ProgressEvery,
	})
	return a
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}
