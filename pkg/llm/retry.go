package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// retryClient wraps any Client with retry logic.
type retryClient struct {
	inner      Client
	maxRetries int
	baseDelay  time.Duration
}

// wrapWithRetry wraps a client so retryable failures are attempted again up
// to maxRetries additional times.
func wrapWithRetry(client Client, maxRetries int) Client {
	if maxRetries <= 0 {
		return client
	}
	return &retryClient{
		inner:      client,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
	}
}

func (r *retryClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryableError(err) || attempt == r.maxRetries {
			break
		}

		delay := r.baseDelay << attempt
		slog.WarnContext(ctx, "LLM request failed, retrying",
			"provider", r.inner.Provider(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("llm generate: %w", lastErr)
}

func (r *retryClient) Provider() Provider {
	return r.inner.Provider()
}

// isRetryableError determines if an error is worth retrying.
func isRetryableError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
