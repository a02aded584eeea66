// Package enrich attaches short AI summaries to aggregated articles in the
// background.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Vickykunwar/newszoid-backend/internal/news/sources"
	"github.com/Vickykunwar/newszoid-backend/pkg/llm"
)

const (
	// MaxItems bounds how many articles one aggregation may summarize.
	MaxItems = 5
	// DefaultTimeout bounds one enrichment job.
	DefaultTimeout = 30 * time.Second
	// maxJobs bounds concurrently running jobs; extra jobs are dropped.
	maxJobs = 4
)

// Summarizer turns article text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

const summaryPrompt = "You summarize news articles for a mobile news app. " +
	"Reply with one or two plain sentences, at most 40 words, no preamble."

// LLMSummarizer summarizes through an llm.Client.
type LLMSummarizer struct {
	client llm.Client
}

// NewLLMSummarizer wraps client.
func NewLLMSummarizer(client llm.Client) *LLMSummarizer {
	return &LLMSummarizer{client: client}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("nothing to summarize")
	}
	resp, err := s.client.Generate(ctx, &llm.Request{
		System:   summaryPrompt,
		Messages: []llm.Message{{Role: "user", Content: text}},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("summarize: empty response")
	}
	return summary, nil
}

// ApplyFunc receives the article id to summary map of a finished job.
type ApplyFunc func(ctx context.Context, summaries map[string]string) error

// Enricher runs fire-and-forget summarization jobs. A nil *Enricher or one
// without a Summarizer is disabled.
type Enricher struct {
	summarizer Summarizer
	timeout    time.Duration
	logger     *slog.Logger
	slots      chan struct{}
	wg         sync.WaitGroup
}

// New creates an Enricher. A nil summarizer yields a disabled Enricher.
func New(summarizer Summarizer, timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Enricher{
		summarizer: summarizer,
		timeout:    timeout,
		logger:     slog.Default(),
		slots:      make(chan struct{}, maxJobs),
	}
}

// Enabled reports whether jobs will actually run.
func (e *Enricher) Enabled() bool {
	return e != nil && e.summarizer != nil
}

// Enrich schedules summarization of the first MaxItems articles that have
// no summary yet and returns immediately. apply is called once with the
// summaries that succeeded; failures are logged and dropped.
func (e *Enricher) Enrich(key string, articles []sources.Article, apply ApplyFunc) {
	if !e.Enabled() || apply == nil {
		return
	}

	batch := make([]sources.Article, 0, MaxItems)
	for _, a := range articles {
		if len(batch) == MaxItems {
			break
		}
		if a.AISummary == nil {
			batch = append(batch, a)
		}
	}
	if len(batch) == 0 {
		return
	}

	select {
	case e.slots <- struct{}{}:
	default:
		e.logger.Debug("enrichment busy, skipping", "key", key)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() { <-e.slots }()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("enrichment job panicked", "key", key, "panic", r)
			}
		}()
		e.run(key, batch, apply)
	}()
}

func (e *Enricher) run(key string, batch []sources.Article, apply ApplyFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	start := time.Now()
	summaries := make(map[string]string, len(batch))
	for _, a := range batch {
		if ctx.Err() != nil {
			break
		}
		text := a.Title
		if a.Snippet != "" {
			text += ". " + a.Snippet
		}
		summary, err := e.summarizer.Summarize(ctx, text)
		if err != nil {
			e.logger.Debug("summary unavailable", "key", key, "article", a.ID, "error", err)
			continue
		}
		summaries[a.ID] = summary
	}

	if len(summaries) == 0 {
		return
	}
	if err := apply(ctx, summaries); err != nil {
		e.logger.Warn("failed to store summaries", "key", key, "error", err)
		return
	}
	e.logger.Info("articles enriched", "key", key, "count", len(summaries), "duration", time.Since(start))
}

// Wait blocks until every scheduled job has finished.
func (e *Enricher) Wait() {
	if e == nil {
		return
	}
	e.wg.Wait()
}
