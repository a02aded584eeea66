package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastOptions() *Options {
	return &Options{Timeout: time.Second, Backoff: time.Millisecond}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "Newszoid/") {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := NewFetcher(nil).Fetch(context.Background(), srv.URL, fastOptions(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if resp.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", resp.Attempts)
	}
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	resp, err := NewFetcher(nil).Fetch(context.Background(), srv.URL, fastOptions(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", resp.Attempts)
	}
}

func TestFetch_ExhaustedRetriesReturnStatusError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFetcher(nil).Fetch(context.Background(), srv.URL, fastOptions(), 2)
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", se.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 1 call + 2 retries, got %d", got)
	}
}

func TestFetch_TimeoutIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer srv.Close()

	opts := &Options{Timeout: 20 * time.Millisecond, Backoff: time.Millisecond}
	_, err := NewFetcher(nil).Fetch(context.Background(), srv.URL, opts, 1)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestFetch_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	opts := &Options{Timeout: time.Second, Backoff: time.Second}
	start := time.Now()
	_, err := NewFetcher(nil).Fetch(ctx, srv.URL, opts, 3)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Fatal("backoff did not honour context cancellation")
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://newsapi.org/v2/everything?q=ai&apiKey=secret")
	if strings.Contains(got, "secret") {
		t.Fatalf("credential leaked: %s", got)
	}
	if !strings.Contains(got, "q=ai") {
		t.Fatalf("query lost: %s", got)
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"plain", "Hello   world", "Hello world"},
		{"markup", `<p>Hello <b>world</b></p><script>alert(1)</script>`, "Hello world"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.input); got != tt.want {
				t.Errorf("ExtractText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("héllo wörld", 8); len([]rune(got)) != 8 {
		t.Fatalf("expected 8 runes, got %q", got)
	}
}
