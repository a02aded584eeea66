// Package aggregator fans a news query out to every configured provider,
// merges the answers and caches the result. It never surfaces upstream
// failures: when nothing usable comes back it serves fallback articles.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Vickykunwar/newszoid-backend/internal/news/enrich"
	"github.com/Vickykunwar/newszoid-backend/internal/news/fallback"
	"github.com/Vickykunwar/newszoid-backend/internal/news/sources"
	"github.com/Vickykunwar/newszoid-backend/pkg/cache"
	"github.com/Vickykunwar/newszoid-backend/pkg/fetch"
)

// ErrAggregation is returned when the pipeline itself breaks. Callers are
// expected to answer with fallback data.
var ErrAggregation = errors.New("news aggregation failed")

const (
	DefaultCategory  = "general"
	DefaultLocation  = "delhi"
	DefaultPageSize  = 10
	MaxPage          = 100
	MaxPageSize      = 50
	MaxLocalPage     = 50
	MaxLocalPageSize = 20
	DefaultRetries   = 2

	kindNews  = "news"
	kindLocal = "local"
)

// Config configures the aggregation pipeline.
type Config struct {
	Providers  []sources.ProviderConfig
	TTL        time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Result is the answer to one news query.
type Result struct {
	Articles   []sources.Article `json:"data"`
	FromCache  bool              `json:"fromCache"`
	IsFallback bool              `json:"isFallback"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	Key        string            `json:"key"`
}

// CacheEntry is what gets stored per query.
type CacheEntry struct {
	Articles   []sources.Article `json:"articles"`
	IsFallback bool              `json:"isFallback"`
	Total      int               `json:"total"`
	StoredAt   time.Time         `json:"storedAt"`
}

// Aggregator runs news queries. Safe for concurrent use.
type Aggregator struct {
	adapters   []sources.Adapter
	fetcher    fetch.Doer
	cache      cache.Cache
	fallback   *fallback.Store
	enricher   *enrich.Enricher
	ttl        time.Duration
	maxRetries int
	backoff    time.Duration
	group      singleflight.Group
	now        func() time.Time
	logger     *slog.Logger
}

// New builds an Aggregator over the configured providers. Providers without
// usable credentials are skipped. enricher may be nil.
func New(cfg Config, fetcher fetch.Doer, c cache.Cache, fb *fallback.Store, enricher *enrich.Enricher) (*Aggregator, error) {
	if fetcher == nil || c == nil || fb == nil {
		return nil, fmt.Errorf("aggregator: fetcher, cache and fallback store are required")
	}

	a := &Aggregator{
		fetcher:    fetcher,
		cache:      c,
		fallback:   fb,
		enricher:   enricher,
		ttl:        cfg.TTL,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		now:        time.Now,
		logger:     slog.Default(),
	}
	if a.ttl <= 0 {
		a.ttl = cache.DefaultTTL
	}
	if a.maxRetries < 0 {
		a.maxRetries = 0
	}

	for _, pc := range cfg.Providers {
		if !pc.Configured() {
			a.logger.Info("news provider disabled", "provider", pc.Provider)
			continue
		}
		adapter, err := sources.NewAdapter(pc)
		if err != nil {
			return nil, err
		}
		a.adapters = append(a.adapters, adapter)
	}
	return a, nil
}

// WithClock replaces the time source. Used by tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Providers returns the identifiers of the active providers in fan-out order.
func (a *Aggregator) Providers() []sources.Provider {
	out := make([]sources.Provider, len(a.adapters))
	for i, ad := range a.adapters {
		out[i] = ad.Provider()
	}
	return out
}

// AIEnabled reports whether results are enriched with summaries.
func (a *Aggregator) AIEnabled() bool {
	return a.enricher.Enabled()
}

type query struct {
	kind     string
	key      string
	phrase   string
	category string
	page     int
	pageSize int
	fallback func() []sources.Article
}

func (q query) cacheKey() string {
	return fmt.Sprintf("%s:%s:%d:%d", q.kind, q.key, q.page, q.pageSize)
}

// GetNews returns category news. page and pageSize are clamped into their
// valid ranges.
func (a *Aggregator) GetNews(ctx context.Context, category string, page, pageSize int) (*Result, error) {
	key := canonical(category, DefaultCategory)
	return a.get(ctx, query{
		kind:     kindNews,
		key:      key,
		phrase:   categoryPhrase(key),
		category: key,
		page:     clamp(page, 1, MaxPage),
		pageSize: clamp(pageSize, 1, MaxPageSize),
		fallback: func() []sources.Article { return a.fallback.Get(key) },
	})
}

// GetLocalNews returns news for a city.
func (a *Aggregator) GetLocalNews(ctx context.Context, location string, page, pageSize int) (*Result, error) {
	key := canonical(location, DefaultLocation)
	return a.get(ctx, query{
		kind:     kindLocal,
		key:      key,
		phrase:   cityPhrase(key),
		category: kindLocal,
		page:     clamp(page, 1, MaxLocalPage),
		pageSize: clamp(pageSize, 1, MaxLocalPageSize),
		fallback: func() []sources.Article { return a.fallback.Local(key) },
	})
}

// Warm populates the cache with the first page of every category.
func (a *Aggregator) Warm(ctx context.Context, categories []string) error {
	var errs []error
	warmed := 0
	for _, c := range categories {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := a.GetNews(ctx, c, 1, DefaultPageSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("warm %s: %w", c, err))
			continue
		}
		if !res.FromCache {
			warmed++
		}
	}
	a.logger.InfoContext(ctx, "news cache warmed", "categories", len(categories), "refreshed", warmed)
	return errors.Join(errs...)
}

func (a *Aggregator) get(ctx context.Context, q query) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "aggregation panicked", "kind", q.kind, "key", q.key, "panic", r)
			res, err = nil, fmt.Errorf("%w: %v", ErrAggregation, r)
		}
	}()

	cacheKey := q.cacheKey()
	if entry, ok := a.lookup(ctx, cacheKey); ok {
		return entry.result(q, true), nil
	}

	// Upstream calls outlive the caller; only the per-call timeout stops them.
	detached := context.WithoutCancel(ctx)
	v, err, shared := a.group.Do(cacheKey, func() (any, error) {
		return a.build(detached, q, cacheKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregation, err)
	}
	if shared {
		a.logger.DebugContext(ctx, "coalesced news request", "key", cacheKey)
	}
	return v.(*CacheEntry).result(q, false), nil
}

func (a *Aggregator) build(ctx context.Context, q query, cacheKey string) *CacheEntry {
	start := time.Now()
	merged := merge(a.fanOut(ctx, q))

	entry := &CacheEntry{Total: len(merged), StoredAt: a.now()}
	if len(merged) == 0 {
		entry.Articles = q.fallback()
		entry.IsFallback = true
		entry.Total = len(entry.Articles)
	} else {
		entry.Articles = merged
	}
	if len(entry.Articles) > q.pageSize {
		entry.Articles = entry.Articles[:q.pageSize]
	}

	if err := a.store(ctx, cacheKey, entry, a.ttl); err != nil {
		a.logger.WarnContext(ctx, "failed to cache news", "key", cacheKey, "error", err)
	}

	a.logger.InfoContext(ctx, "news aggregated",
		"key", cacheKey,
		"providers", len(a.adapters),
		"articles", len(entry.Articles),
		"total", entry.Total,
		"fallback", entry.IsFallback,
		"duration", time.Since(start))

	if !entry.IsFallback {
		a.enricher.Enrich(cacheKey, entry.Articles, a.applySummaries(cacheKey))
	}
	return entry
}

// fanOut calls every provider concurrently and waits for all of them. A
// failing provider contributes nothing.
func (a *Aggregator) fanOut(ctx context.Context, q query) [][]sources.Article {
	if len(a.adapters) == 0 {
		a.logger.DebugContext(ctx, "no news providers configured", "key", q.key)
		return nil
	}

	sq := sources.Query{Phrase: q.phrase, Category: q.category, Page: q.page, PageSize: q.pageSize}
	results := make([][]sources.Article, len(a.adapters))

	var wg sync.WaitGroup
	for i, ad := range a.adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.ErrorContext(ctx, "news provider panicked", "provider", ad.Provider(), "panic", r)
				}
			}()
			results[i] = a.callProvider(ctx, ad, sq)
		}()
	}
	wg.Wait()
	return results
}

func (a *Aggregator) callProvider(ctx context.Context, ad sources.Adapter, sq sources.Query) []sources.Article {
	spec, err := ad.Request(sq)
	if err != nil {
		a.logger.WarnContext(ctx, "cannot build provider request", "provider", ad.Provider(), "error", err)
		return nil
	}

	opts := fetch.DefaultOptions()
	opts.Timeout = spec.Timeout
	if a.backoff > 0 {
		opts.Backoff = a.backoff
	}

	resp, err := a.fetcher.Fetch(ctx, spec.URL, opts, a.maxRetries)
	if err != nil {
		a.logger.WarnContext(ctx, "news provider failed", "provider", spec.Provider, "error", err)
		return nil
	}

	articles := ad.Parse(resp.Body, sq, a.now())
	a.logger.DebugContext(ctx, "news provider answered",
		"provider", spec.Provider,
		"articles", len(articles),
		"attempts", resp.Attempts,
		"duration", resp.Duration)
	return articles
}

// merge concatenates provider results in order, keeps the first article
// per id and per url, and sorts newest first. Ties keep insertion order.
func merge(lists [][]sources.Article) []sources.Article {
	var (
		out     []sources.Article
		seenID  = make(map[string]struct{})
		seenURL = make(map[string]struct{})
	)
	for _, list := range lists {
		for _, a := range list {
			if _, dup := seenID[a.ID]; dup {
				continue
			}
			if a.URL != sources.NoURL && a.URL != "" {
				if _, dup := seenURL[a.URL]; dup {
					continue
				}
				seenURL[a.URL] = struct{}{}
			}
			seenID[a.ID] = struct{}{}
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

// applySummaries writes finished summaries into the cached entry. An entry
// that has expired in the meantime is left alone.
func (a *Aggregator) applySummaries(cacheKey string) enrich.ApplyFunc {
	return func(ctx context.Context, summaries map[string]string) error {
		entry, ok := a.lookup(ctx, cacheKey)
		if !ok {
			return nil
		}
		remaining := a.ttl - a.now().Sub(entry.StoredAt)
		if remaining <= 0 {
			return nil
		}

		changed := false
		for i := range entry.Articles {
			if s, ok := summaries[entry.Articles[i].ID]; ok {
				entry.Articles[i].AISummary = &s
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return a.store(ctx, cacheKey, entry, remaining)
	}
}

func (a *Aggregator) lookup(ctx context.Context, key string) (*CacheEntry, bool) {
	raw, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.WarnContext(ctx, "news cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		a.logger.WarnContext(ctx, "discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &entry, true
}

func (a *Aggregator) store(ctx context.Context, key string, entry *CacheEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return a.cache.Set(ctx, key, raw, ttl)
}

func (e *CacheEntry) result(q query, fromCache bool) *Result {
	articles := make([]sources.Article, len(e.Articles))
	copy(articles, e.Articles)
	return &Result{
		Articles:   articles,
		FromCache:  fromCache,
		IsFallback: e.IsFallback,
		Total:      e.Total,
		Page:       q.page,
		PageSize:   q.pageSize,
		Key:        q.key,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
