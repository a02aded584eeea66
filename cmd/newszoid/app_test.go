package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Vickykunwar/newszoid-backend/internal/config"
	"github.com/Vickykunwar/newszoid-backend/internal/news/sources"
)

func TestBuildDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SQL.DSN = filepath.Join(t.TempDir(), "app.db")
	cfg.News.RSSEnabled = false
	cfg.LLM.APIKey = ""

	a, err := build(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.jwtSecret == "" {
		t.Fatal("a missing secret must be replaced")
	}
	if a.enricher != nil || a.news.AIEnabled() {
		t.Fatal("enrichment must be off without an LLM key")
	}
	if len(a.news.Providers()) != 0 {
		t.Fatalf("no provider is configured, got %v", a.news.Providers())
	}

	res, err := a.news.GetNews(context.Background(), "technology", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsFallback || len(res.Articles) == 0 {
		t.Fatalf("expected fallback news, got %+v", res)
	}
}

func TestBuildEnablesConfiguredProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SQL.DSN = filepath.Join(t.TempDir(), "app.db")
	cfg.News.NewsAPIKey = "real-key"

	a, err := build(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	got := a.news.Providers()
	if len(got) != 2 || got[0] != sources.NewsAPI || got[1] != sources.RSS {
		t.Fatalf("unexpected providers %v", got)
	}
}

func TestNewLogger(t *testing.T) {
	l := newLogger(config.LogConfig{Format: "text", Level: "debug"})
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level must be enabled")
	}
	l = newLogger(config.LogConfig{Level: "nonsense"})
	if l.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("unknown levels fall back to info")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "newszoid ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
