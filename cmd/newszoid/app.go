package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vickykunwar/newszoid-backend/internal/config"
	"github.com/Vickykunwar/newszoid-backend/internal/docstore"
	"github.com/Vickykunwar/newszoid-backend/internal/library"
	"github.com/Vickykunwar/newszoid-backend/internal/market"
	"github.com/Vickykunwar/newszoid-backend/internal/news/aggregator"
	"github.com/Vickykunwar/newszoid-backend/internal/news/enrich"
	"github.com/Vickykunwar/newszoid-backend/internal/news/fallback"
	"github.com/Vickykunwar/newszoid-backend/internal/news/scheduler"
	"github.com/Vickykunwar/newszoid-backend/internal/user"
	"github.com/Vickykunwar/newszoid-backend/internal/weather"
	"github.com/Vickykunwar/newszoid-backend/pkg/cache"
	"github.com/Vickykunwar/newszoid-backend/pkg/fetch"
	"github.com/Vickykunwar/newszoid-backend/pkg/llm"
	"github.com/Vickykunwar/newszoid-backend/pkg/storage"
)

// app is the wired set of services.
type app struct {
	db        *storage.DB
	cache     cache.Cache
	users     *user.Store
	library   *library.Service
	fallback  *fallback.Store
	enricher  *enrich.Enricher
	news      *aggregator.Aggregator
	weather   *weather.Service
	market    *market.Service
	scheduler *scheduler.Scheduler
	jwtSecret string
	closers   []func() error
}

func build(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set; using a random secret, tokens will not survive a restart")
		cfg.Auth.JWTSecret = uuid.NewString()
	}
	a.jwtSecret = cfg.Auth.JWTSecret

	// SQL always backs users; documents go to the configured backend.
	db, err := storage.Open(cfg.Storage.SQL)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	if err := db.Migrate(ctx, storage.Schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.users = user.NewStore(db)

	var docs docstore.Store
	switch cfg.Storage.Backend {
	case config.BackendDynamoDB:
		dyn, err := docstore.OpenDynamo(ctx, cfg.Storage.DynamoDB)
		if err != nil {
			return nil, err
		}
		docs = dyn
	default:
		docs = docstore.NewSQLStore(db)
	}
	a.library = library.New(docs)

	sched := scheduler.New(ctx)
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		r := cache.NewRedis(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		a.closers = append(a.closers, r.Close)
		if err := r.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.cache = r
	default:
		mem := cache.NewMemory()
		a.cache = mem
		if err := sched.Add(scheduler.Job{
			Name:     "cache-cleanup",
			Schedule: "@every 5m",
			Fn: func(context.Context) error {
				mem.Cleanup()
				return nil
			},
		}); err != nil {
			return nil, err
		}
	}

	if cfg.LLM.Enabled() {
		client, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return nil, err
		}
		a.enricher = enrich.New(enrich.NewLLMSummarizer(client), cfg.News.EnrichTimeout)
	}

	fetcher := fetch.NewFetcher(&http.Client{Timeout: 30 * time.Second})
	a.fallback = fallback.New(time.Now())
	a.news, err = aggregator.New(aggregator.Config{
		Providers:  cfg.News.Providers(),
		TTL:        cfg.Cache.TTL(),
		MaxRetries: cfg.News.MaxRetries,
		Backoff:    cfg.News.Backoff,
	}, fetcher, a.cache, a.fallback, a.enricher)
	if err != nil {
		return nil, err
	}
	a.weather = weather.New(cfg.Weather, fetcher, a.cache)
	a.market = market.New(a.cache, 0)

	if cfg.News.WarmSchedule != "" && len(cfg.News.WarmCategories) > 0 {
		if err := sched.Add(scheduler.WarmJob(a.news, cfg.News.WarmCategories, cfg.News.WarmSchedule)); err != nil {
			return nil, err
		}
	}
	a.scheduler = sched

	ok = true
	return a, nil
}

// Close releases storage and cache connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
