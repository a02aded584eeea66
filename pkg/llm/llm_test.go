package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_InvalidProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "invalid", APIKey: "test"})
	if err == nil {
		t.Fatal("expected error for invalid provider")
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	for _, p := range []Provider{OpenAI, Claude} {
		_, err := NewClient(Config{Provider: p})
		if err == nil {
			t.Fatalf("expected error for %s without API key", p)
		}
	}
}

func TestNewClient_DefaultsToOpenAI(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != OpenAI {
		t.Fatalf("expected OpenAI provider, got %s", client.Provider())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != OpenAI {
		t.Fatalf("expected OpenAI, got %s", cfg.Provider)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("expected gpt-4o-mini, got %s", cfg.Model)
	}
	if cfg.Enabled() {
		t.Fatal("default config has no key and must not be enabled")
	}
}

func TestConfigEnabled(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"your_openai_key", false},
		{"YOUR_KEY_HERE", false},
		{"changeme", false},
		{"<openai-key>", false},
		{"sk-live-123", true},
	}
	for _, tt := range tests {
		cfg := Config{APIKey: tt.key}
		if got := cfg.Enabled(); got != tt.want {
			t.Errorf("Enabled(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("expected system + user messages, got %+v", body.Messages)
		}
		if body.MaxTokens != 160 {
			t.Errorf("expected config max tokens, got %d", body.MaxTokens)
		}
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"  short summary \n"}}],"usage":{"prompt_tokens":12,"completion_tokens":4}}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/"
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.Generate(context.Background(), &Request{
		System:   "Summarize.",
		Messages: []Message{{Role: "user", Content: "long text"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "short summary" {
		t.Fatalf("expected trimmed content, got %q", resp.Content)
	}
	if resp.TokensIn != 12 || resp.TokensOut != 4 {
		t.Fatalf("unexpected usage %d/%d", resp.TokensIn, resp.TokensOut)
	}
}

func TestOpenAIGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.Generate(context.Background(), &Request{Messages: []Message{{Role: "user", Content: "x"}}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "bad key" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if apiErr.Retryable() {
		t.Fatal("401 must not be retryable")
	}
}

func TestClaudeGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "claude-key" {
			t.Errorf("missing api key header")
		}
		var body claudeRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.System != "Summarize." {
			t.Errorf("expected system prompt, got %q", body.System)
		}
		w.Write([]byte(`{"model":"claude","content":[{"type":"text","text":"one "},{"type":"text","text":"line"}],"usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Provider: Claude, APIKey: "claude-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Generate(context.Background(), &Request{
		System:   "Summarize.",
		Messages: []Message{{Role: "user", Content: "text"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "one line" {
		t.Fatalf("expected joined text blocks, got %q", resp.Content)
	}
	if client.Provider() != Claude {
		t.Fatalf("expected Claude provider, got %s", client.Provider())
	}
}

func TestRetryClient_NoRetryOnSuccess(t *testing.T) {
	calls := 0
	mock := &mockClient{
		generateFn: func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			return &Response{Content: "hello"}, nil
		},
	}
	rc := wrapWithRetry(mock, 3)
	resp, err := rc.Generate(context.Background(), &Request{
		Messages: []Message{{Role: "user", Content: "test"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello" {
		t.Fatalf("expected 'hello', got '%s'", resp.Content)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryClient_RetriesServerErrors(t *testing.T) {
	calls := 0
	mock := &mockClient{
		generateFn: func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			if calls < 3 {
				return nil, &APIError{Provider: "mock", StatusCode: http.StatusServiceUnavailable}
			}
			return &Response{Content: "ok"}, nil
		},
	}
	rc := &retryClient{inner: mock, maxRetries: 2, baseDelay: time.Millisecond}
	resp, err := rc.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "ok" || calls != 3 {
		t.Fatalf("expected success on third call, got %q after %d calls", resp.Content, calls)
	}
}

func TestRetryClient_StopsOnPermanentError(t *testing.T) {
	calls := 0
	mock := &mockClient{
		generateFn: func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			return nil, &APIError{Provider: "mock", StatusCode: http.StatusBadRequest}
		},
	}
	rc := &retryClient{inner: mock, maxRetries: 3, baseDelay: time.Millisecond}
	if _, err := rc.Generate(context.Background(), &Request{}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call for a 400, got %d", calls)
	}
}

func TestRetryClient_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &mockClient{
		generateFn: func(ctx context.Context, req *Request) (*Response, error) {
			cancel()
			return nil, &APIError{Provider: "mock", StatusCode: http.StatusTooManyRequests}
		},
	}
	rc := &retryClient{inner: mock, maxRetries: 3, baseDelay: time.Hour}
	_, err := rc.Generate(ctx, &Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type mockClient struct {
	generateFn func(ctx context.Context, req *Request) (*Response, error)
}

func (m *mockClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	return m.generateFn(ctx, req)
}
func (m *mockClient) Provider() Provider { return "mock" }
