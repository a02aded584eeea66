// Package weather proxies current conditions from OpenWeatherMap with a
// short cache and a static fallback report.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Vickykunwar/newszoid-backend/pkg/cache"
	"github.com/Vickykunwar/newszoid-backend/pkg/config"
	"github.com/Vickykunwar/newszoid-backend/pkg/fetch"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"
	DefaultCity    = "Delhi"
	DefaultTTL     = 10 * time.Minute
)

// Config configures the weather proxy.
type Config struct {
	APIKey      string        `yaml:"api_key" env:"OPENWEATHER_API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"OPENWEATHER_BASE_URL"`
	DefaultCity string        `yaml:"default_city"`
	TTL         time.Duration `yaml:"ttl"`
	MaxRetries  int           `yaml:"max_retries"`
}

// Report is the current weather for one city, in metric units.
type Report struct {
	City        string    `json:"city"`
	Country     string    `json:"country,omitempty"`
	TempC       float64   `json:"tempC"`
	FeelsLikeC  float64   `json:"feelsLikeC"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	IsFallback  bool      `json:"isFallback"`
	FromCache   bool      `json:"fromCache"`
	ObservedAt  time.Time `json:"observedAt"`
}

// Service answers weather lookups.
type Service struct {
	cfg     Config
	fetcher fetch.Doer
	cache   cache.Cache
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Service.
func New(cfg Config, fetcher fetch.Doer, c cache.Cache) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = DefaultCity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Service{cfg: cfg, fetcher: fetcher, cache: c, now: time.Now, logger: slog.Default()}
}

// Enabled reports whether a real API key is configured.
func (s *Service) Enabled() bool {
	return !config.IsPlaceholder(s.cfg.APIKey)
}

// Current returns the weather for city. Upstream failures and a missing key
// produce a fallback report instead of an error.
func (s *Service) Current(ctx context.Context, city string) *Report {
	city = strings.Join(strings.Fields(city), " ")
	if city == "" {
		city = s.cfg.DefaultCity
	}
	if !s.Enabled() {
		return s.fallback(city)
	}

	key := "weather:" + strings.ToLower(city)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var r Report
		if err := json.Unmarshal(raw, &r); err == nil {
			r.FromCache = true
			return &r
		}
	}

	r, err := s.fetch(ctx, city)
	if err != nil {
		s.logger.WarnContext(ctx, "weather lookup failed", "city", city, "error", err)
		return s.fallback(city)
	}
	if raw, err := json.Marshal(r); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cfg.TTL); err != nil {
			s.logger.WarnContext(ctx, "failed to cache weather", "city", city, "error", err)
		}
	}
	return r
}

type owmResponse struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

func (s *Service) fetch(ctx context.Context, city string) (*Report, error) {
	v := url.Values{}
	v.Set("q", city)
	v.Set("units", "metric")
	v.Set("appid", s.cfg.APIKey)

	resp, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL+"/data/2.5/weather?"+v.Encode(), fetch.DefaultOptions(), s.cfg.MaxRetries)
	if err != nil {
		return nil, err
	}

	var body owmResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode weather: %w", err)
	}
	if body.Name == "" && len(body.Weather) == 0 {
		return nil, fmt.Errorf("weather payload for %q is empty", city)
	}

	r := &Report{
		City:       body.Name,
		Country:    body.Sys.Country,
		TempC:      body.Main.Temp,
		FeelsLikeC: body.Main.FeelsLike,
		Humidity:   body.Main.Humidity,
		WindSpeed:  body.Wind.Speed,
		ObservedAt: s.now().UTC().Truncate(time.Second),
	}
	if r.City == "" {
		r.City = city
	}
	if body.Dt > 0 {
		r.ObservedAt = time.Unix(body.Dt, 0).UTC()
	}
	if len(body.Weather) > 0 {
		r.Condition = body.Weather[0].Main
		r.Description = body.Weather[0].Description
		r.Icon = body.Weather[0].Icon
	}
	return r, nil
}

func (s *Service) fallback(city string) *Report {
	return &Report{
		City:        city,
		TempC:       28,
		FeelsLikeC:  30,
		Humidity:    55,
		WindSpeed:   3.5,
		Condition:   "Clear",
		Description: "weather data unavailable",
		IsFallback:  true,
		ObservedAt:  s.now().UTC().Truncate(time.Second),
	}
}
