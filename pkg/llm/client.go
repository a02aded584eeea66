// Package llm provides a small provider-agnostic client for text generation.
// It backs the optional article summarization hook.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Vickykunwar/newszoid-backend/pkg/config"
)

// Provider represents an LLM provider.
type Provider string

const (
	OpenAI Provider = "openai"
	Claude Provider = "claude"
)

// Config holds configuration for an LLM client.
type Config struct {
	Provider    Provider      `yaml:"provider" json:"provider" env:"LLM_PROVIDER"`
	Model       string        `yaml:"model" json:"model" env:"LLM_MODEL"`
	APIKey      string        `yaml:"api_key" json:"-" env:"LLM_API_KEY"`
	BaseURL     string        `yaml:"base_url" json:"base_url" env:"LLM_BASE_URL"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
}

// DefaultConfig returns a Config tuned for short summaries.
func DefaultConfig() Config {
	return Config{
		Provider:    OpenAI,
		Model:       "gpt-4o-mini",
		MaxRetries:  2,
		Timeout:     20 * time.Second,
		MaxTokens:   160,
		Temperature: 0.3,
	}
}

// Enabled reports whether a usable credential is configured.
func (c Config) Enabled() bool {
	return !config.IsPlaceholder(c.APIKey)
}

// Client is the unified interface for LLM interactions.
type Client interface {
	// Generate sends a prompt and returns the LLM response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the name of the provider.
	Provider() Provider
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request holds the parameters for an LLM generation request.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Response holds the result of an LLM generation.
type Response struct {
	Content   string `json:"content"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
	Model     string `json:"model"`
	LatencyMs int64  `json:"latency_ms"`
}

// APIError is a non-success answer from a provider.
type APIError struct {
	Provider   Provider
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewClient creates a new LLM client based on the provided config.
func NewClient(cfg Config) (Client, error) {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case OpenAI, "":
		client, err = newOpenAIClient(cfg)
	case Claude:
		client, err = newClaudeClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return wrapWithRetry(client, cfg.MaxRetries), nil
}
