// Package market serves index quotes. No market data feed is wired, so
// quotes are simulated deterministically per minute around fixed closes.
package market

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/Vickykunwar/newszoid-backend/pkg/cache"
)

const (
	DefaultTTL = 60 * time.Second
	cacheKey   = "market:snapshot"
	maxDrift   = 0.02
)

// Quote is one instrument.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Currency      string  `json:"currency"`
}

// Snapshot is the full quote board.
type Snapshot struct {
	Quotes    []Quote   `json:"quotes"`
	AsOf      time.Time `json:"asOf"`
	Simulated bool      `json:"simulated"`
	FromCache bool      `json:"fromCache"`
}

type instrument struct {
	symbol, name, currency string
	close                  float64
}

var instruments = []instrument{
	{"NIFTY50", "NIFTY 50", "INR", 22500},
	{"SENSEX", "S&P BSE SENSEX", "INR", 74000},
	{"BANKNIFTY", "NIFTY Bank", "INR", 48000},
	{"NIFTYIT", "NIFTY IT", "INR", 35000},
	{"USDINR", "US Dollar / Indian Rupee", "INR", 83.3},
	{"GOLD", "Gold (10g)", "INR", 72000},
}

// Service builds and caches snapshots.
type Service struct {
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Service. ttl <= 0 uses DefaultTTL.
func New(c cache.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{cache: c, ttl: ttl, now: time.Now, logger: slog.Default()}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Snapshot returns the current quote board.
func (s *Service) Snapshot(ctx context.Context) *Snapshot {
	if raw, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var snap Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			snap.FromCache = true
			return &snap
		}
	}

	snap := Simulate(s.now())
	if raw, err := json.Marshal(snap); err == nil {
		if err := s.cache.Set(ctx, cacheKey, raw, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "failed to cache market snapshot", "error", err)
		}
	}
	return snap
}

// Simulate produces the board for the minute containing at. The same
// minute always yields the same quotes.
func Simulate(at time.Time) *Snapshot {
	minute := at.UTC().Truncate(time.Minute)
	quotes := make([]Quote, 0, len(instruments))
	for _, in := range instruments {
		h := fnv.New64a()
		h.Write([]byte(in.symbol))
		rng := rand.New(rand.NewPCG(uint64(minute.Unix()), h.Sum64()))

		drift := (rng.Float64()*2 - 1) * maxDrift
		price := round2(in.close * (1 + drift))
		change := round2(price - in.close)
		quotes = append(quotes, Quote{
			Symbol:        in.symbol,
			Name:          in.name,
			Price:         price,
			PreviousClose: in.close,
			Change:        change,
			ChangePercent: round2(change / in.close * 100),
			Currency:      in.currency,
		})
	}
	return &Snapshot{Quotes: quotes, AsOf: minute, Simulated: true}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
