package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Vickykunwar/newszoid-backend/pkg/cache"
	"github.com/Vickykunwar/newszoid-backend/pkg/fetch"
)

const owmBody = `{"name":"Mumbai","dt":1714550400,"main":{"temp":31.2,"feels_like":36.4,"humidity":70},
"weather":[{"main":"Haze","description":"haze","icon":"50d"}],"wind":{"speed":4.1},"sys":{"country":"IN"}}`

func TestCurrentFetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if r.URL.Path != "/data/2.5/weather" || q.Get("units") != "metric" || q.Get("appid") != "owm-key" || q.Get("q") != "Mumbai" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(owmBody))
	}))
	defer srv.Close()

	s := New(Config{APIKey: "owm-key", BaseURL: srv.URL}, fetch.NewFetcher(srv.Client()), cache.NewMemory())
	first := s.Current(context.Background(), " Mumbai ")
	if first.IsFallback || first.City != "Mumbai" || first.TempC != 31.2 || first.Condition != "Haze" || first.Country != "IN" {
		t.Fatalf("unexpected report %+v", first)
	}
	if first.FromCache {
		t.Fatal("first lookup must not come from cache")
	}

	second := s.Current(context.Background(), "mumbai")
	if !second.FromCache || second.TempC != first.TempC {
		t.Fatalf("expected cached report, got %+v", second)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
}

func TestCurrentWithoutKeyIsFallback(t *testing.T) {
	s := New(Config{APIKey: "your_openweather_key"}, fetch.NewFetcher(nil), cache.NewMemory())
	r := s.Current(context.Background(), "")
	if !r.IsFallback || r.City != DefaultCity {
		t.Fatalf("expected fallback for default city, got %+v", r)
	}
	if s.Enabled() {
		t.Fatal("placeholder key must disable the service")
	}
}

func TestCurrentUpstreamFailureIsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(Config{APIKey: "k", BaseURL: srv.URL}, fetch.NewFetcher(srv.Client()), cache.NewMemory())
	r := s.Current(context.Background(), "Atlantis")
	if !r.IsFallback || r.City != "Atlantis" {
		t.Fatalf("expected fallback report, got %+v", r)
	}
}
