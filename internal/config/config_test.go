package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Vickykunwar/newszoid-backend/internal/news/sources"
)

func TestLoadMissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NEWSAPI_KEY", "real-key")
	t.Setenv("CACHE_TTL_SECONDS", "120")
	t.Setenv("NEWS_WARM_CATEGORIES", "sports, health")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != ":9090" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr())
	}
	if cfg.Cache.TTL() != 2*time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.Cache.TTL())
	}
	if got := cfg.News.WarmCategories; len(got) != 2 || got[1] != "health" {
		t.Fatalf("unexpected warm categories %v", got)
	}
	if cfg.Storage.Backend != BackendSQL || cfg.Cache.Backend != BackendMemory {
		t.Fatalf("unexpected backends %+v %+v", cfg.Storage, cfg.Cache)
	}

	providers := cfg.News.Providers()
	if len(providers) != 3 || providers[0].Provider != sources.NewsAPI || !providers[0].Configured() {
		t.Fatalf("unexpected providers %+v", providers)
	}
	if providers[1].Configured() {
		t.Fatal("gnews has no key and must stay disabled")
	}
	if !providers[2].Configured() {
		t.Fatal("rss is enabled by default")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis:6379")
	path := filepath.Join(t.TempDir(), "newszoid.yaml")
	data := `
server:
  port: "127.0.0.1:8000"
cache:
  backend: redis
  ttl_seconds: 60
  redis:
    addr: ${TEST_REDIS_ADDR}
news:
  rss_enabled: false
  backoff: 250ms
log:
  format: text
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "127.0.0.1:8000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr())
	}
	if cfg.Cache.Redis.Addr != "redis:6379" || cfg.Cache.TTL() != time.Minute {
		t.Fatalf("unexpected cache %+v", cfg.Cache)
	}
	if cfg.News.RSSEnabled || cfg.News.Backoff != 250*time.Millisecond {
		t.Fatalf("unexpected news %+v", cfg.News)
	}
	if cfg.Log.Format != "text" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected log %+v", cfg.Log)
	}
	if cfg.LLM.Model == "" {
		t.Fatal("llm defaults must survive a partial file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = BackendDynamoDB
	if err := cfg.Validate(); err == nil {
		t.Fatal("dynamodb without a table must fail")
	}
	cfg.Storage.DynamoDB.Table = "newszoid"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown cache backend must fail")
	}
}
