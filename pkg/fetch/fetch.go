// Package fetch provides HTTP fetching with per-attempt timeouts and linear
// retry backoff, plus HTML-to-text helpers for upstream payloads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 8 * time.Second
	// DefaultBackoff is multiplied by the retry index between attempts.
	DefaultBackoff = time.Second
	// maxBodyBytes caps how much of an upstream body is read.
	maxBodyBytes = 8 << 20
)

// Options configures the behavior of a Fetch call.
type Options struct {
	Method    string            `yaml:"method"`
	UserAgent string            `yaml:"user_agent"`
	Timeout   time.Duration     `yaml:"timeout"`
	Backoff   time.Duration     `yaml:"backoff"`
	Headers   map[string]string `yaml:"headers"`
}

// DefaultOptions returns sensible defaults for upstream API calls.
func DefaultOptions() *Options {
	return &Options{
		Method:    http.MethodGet,
		UserAgent: "Newszoid/1.0 (+https://github.com/Vickykunwar/newszoid-backend)",
		Timeout:   DefaultTimeout,
		Backoff:   DefaultBackoff,
	}
}

// Response holds the result of a successful fetch.
type Response struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	Header     http.Header   `json:"-"`
	Body       []byte        `json:"-"`
	Attempts   int           `json:"attempts"`
	FetchedAt  time.Time     `json:"fetched_at"`
	Duration   time.Duration `json:"duration"`
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// Doer fetches a URL with retries.
type Doer interface {
	Fetch(ctx context.Context, url string, opts *Options, maxRetries int) (*Response, error)
}

// Fetcher implements Doer using net/http.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. Timeouts are applied per attempt through the
// request context, so the client itself carries none.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client, logger: slog.Default()}
}

// Fetch performs the request, retrying up to maxRetries additional times.
// Network errors, timeouts and non-2xx statuses all count as failures; the
// wait before retry i (1-based) is i*opts.Backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts *Options, maxRetries int) (*Response, error) {
	opts = withDefaults(opts)
	if maxRetries < 0 {
		maxRetries = 0
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * opts.Backoff
			f.logger.WarnContext(ctx, "upstream request failed, retrying",
				"url", redact(url),
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", delay,
				"error", lastErr)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch %s: %w", redact(url), ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := f.once(ctx, url, opts)
		if err == nil {
			resp.Attempts = attempt + 1
			resp.Duration = time.Since(start)
			return resp, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", redact(url), maxRetries+1, lastErr)
}

func (f *Fetcher) once(ctx context.Context, url string, opts *Options) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, opts.Method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, application/xml;q=0.9, */*;q=0.8")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{URL: redact(url), StatusCode: resp.StatusCode, Body: snippet}
	}

	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FetchedAt:  time.Now(),
	}, nil
}

func withDefaults(opts *Options) *Options {
	d := DefaultOptions()
	if opts == nil {
		return d
	}
	o := *opts
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Backoff <= 0 {
		o.Backoff = d.Backoff
	}
	return &o
}
