// Package config defines the newszoid server configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Vickykunwar/newszoid-backend/internal/docstore"
	"github.com/Vickykunwar/newszoid-backend/internal/news/aggregator"
	"github.com/Vickykunwar/newszoid-backend/internal/news/sources"
	"github.com/Vickykunwar/newszoid-backend/internal/weather"
	appconfig "github.com/Vickykunwar/newszoid-backend/pkg/config"
	"github.com/Vickykunwar/newszoid-backend/pkg/llm"
	"github.com/Vickykunwar/newszoid-backend/pkg/storage"
)

// Storage backends.
const (
	BackendSQL      = "sql"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Auth    AuthConfig     `yaml:"auth"`
	Storage StorageConfig  `yaml:"storage"`
	Cache   CacheConfig    `yaml:"cache"`
	News    NewsConfig     `yaml:"news"`
	LLM     llm.Config     `yaml:"llm"`
	Weather weather.Config `yaml:"weather"`
	Log     LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ORIGINS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// StorageConfig selects the document store.
type StorageConfig struct {
	Backend  string                `yaml:"backend" env:"STORAGE_BACKEND"`
	SQL      storage.Config        `yaml:"sql"`
	DynamoDB docstore.DynamoConfig `yaml:"dynamodb"`
}

// CacheConfig selects the response cache.
type CacheConfig struct {
	Backend    string `yaml:"backend" env:"CACHE_BACKEND"`
	TTLSeconds int    `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS"`
	Redis      struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
}

// TTL is the news cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// NewsConfig holds provider credentials and pipeline tuning.
type NewsConfig struct {
	NewsAPIKey     string        `yaml:"newsapi_key" env:"NEWSAPI_KEY"`
	NewsAPIBaseURL string        `yaml:"newsapi_base_url"`
	GNewsAPIKey    string        `yaml:"gnews_api_key" env:"GNEWS_API_KEY"`
	GNewsBaseURL   string        `yaml:"gnews_base_url"`
	RSSEnabled     bool          `yaml:"rss_enabled" env:"NEWS_RSS_ENABLED"`
	RSSBaseURL     string        `yaml:"rss_base_url"`
	MaxRetries     int           `yaml:"max_retries" env:"NEWS_MAX_RETRIES"`
	Backoff        time.Duration `yaml:"backoff"`
	EnrichTimeout  time.Duration `yaml:"enrich_timeout"`
	WarmSchedule   string        `yaml:"warm_schedule" env:"NEWS_WARM_SCHEDULE"`
	WarmCategories []string      `yaml:"warm_categories" env:"NEWS_WARM_CATEGORIES"`
}

// Providers lists the upstream providers in fan-out order.
func (n NewsConfig) Providers() []sources.ProviderConfig {
	return []sources.ProviderConfig{
		{Provider: sources.NewsAPI, APIKey: n.NewsAPIKey, BaseURL: n.NewsAPIBaseURL},
		{Provider: sources.GNews, APIKey: n.GNewsAPIKey, BaseURL: n.GNewsBaseURL},
		{Provider: sources.RSS, BaseURL: n.RSSBaseURL, Enabled: n.RSSEnabled},
	}
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
	Level  string `yaml:"level" env:"LOG_LEVEL"`
}

// Default returns a Config that runs locally with no credentials.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{TokenTTL: 7 * 24 * time.Hour},
		Storage: StorageConfig{
			Backend: BackendSQL,
			SQL:     storage.Config{Driver: storage.SQLite, DSN: "data/newszoid.db"},
		},
		Cache: CacheConfig{Backend: BackendMemory, TTLSeconds: 300},
		News: NewsConfig{
			RSSEnabled:     true,
			MaxRetries:     aggregator.DefaultRetries,
			Backoff:        time.Second,
			WarmSchedule:   "*/5 * * * *",
			WarmCategories: []string{"general", "technology", "business", "sports"},
		},
		LLM:     llm.DefaultConfig(),
		Weather: weather.Config{DefaultCity: weather.DefaultCity, TTL: weather.DefaultTTL, MaxRetries: 1},
		Log:     LogConfig{Format: "json", Level: "info"},
	}
}

// Load reads path over the defaults. A missing file leaves the defaults
// and applies only environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := appconfig.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks backend names and required secrets.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQL:
	case BackendDynamoDB:
		if c.Storage.DynamoDB.Table == "" {
			return fmt.Errorf("storage: dynamodb backend needs a table name")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache: redis backend needs an address")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache: ttl_seconds must not be negative")
	}
	return nil
}
