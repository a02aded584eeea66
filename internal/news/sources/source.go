// Package sources builds requests for the upstream news providers and maps
// each provider's payload onto the normalized Article shape.
package sources

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vickykunwar/newszoid-backend/pkg/config"
	"github.com/Vickykunwar/newszoid-backend/pkg/fetch"
)

const (
	// SnippetLength caps the snippet in runes.
	SnippetLength = 200
	// PlaceholderImage is used when a provider supplies no image.
	PlaceholderImage = "https://via.placeholder.com/640x360.png?text=Newszoid"
	// UntitledTitle replaces a missing headline.
	UntitledTitle = "Untitled"
	// NoURL marks an article without a canonical link.
	NoURL = "#"
)

// articleNamespace seeds IDs for articles that carry no URL.
var articleNamespace = uuid.MustParse("6f1c2f0e-9a57-4c4e-8f7b-2d0c8e5b7a11")

// Article is the normalized news item served to clients.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	URL         string    `json:"url"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	AISummary   *string   `json:"aiSummary"`
}

// Provider identifies an upstream news API.
type Provider string

const (
	NewsAPI Provider = "newsapi"
	GNews   Provider = "gnews"
	RSS     Provider = "rss"
)

// Providers lists every supported provider in fan-out order.
var Providers = []Provider{NewsAPI, GNews, RSS}

// ProviderConfig carries the credential and endpoint of one provider.
type ProviderConfig struct {
	Provider Provider `yaml:"provider"`
	APIKey   string   `yaml:"api_key"`
	BaseURL  string   `yaml:"base_url"`
	// Enabled switches on providers that need no credential.
	Enabled bool `yaml:"enabled"`
}

// Configured reports whether the provider can be called.
func (c ProviderConfig) Configured() bool {
	if c.Provider == RSS {
		return c.Enabled
	}
	return !config.IsPlaceholder(c.APIKey)
}

// Query is one provider-agnostic search.
type Query struct {
	Phrase   string
	Category string
	Page     int
	PageSize int
}

// RequestSpec describes one outbound provider call.
type RequestSpec struct {
	Provider Provider
	URL      string
	Timeout  time.Duration
}

// Adapter is the per-provider strategy. Parse never fails: malformed
// payloads yield no articles and malformed items are skipped.
type Adapter interface {
	Provider() Provider
	Request(q Query) (RequestSpec, error)
	Parse(body []byte, q Query, now time.Time) []Article
}

// NewAdapter selects the adapter for cfg.Provider.
func NewAdapter(cfg ProviderConfig) (Adapter, error) {
	switch cfg.Provider {
	case NewsAPI:
		return newNewsAPI(cfg), nil
	case GNews:
		return newGNews(cfg), nil
	case RSS:
		return newRSSAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown news provider: %q", cfg.Provider)
	}
}

// rawArticle is the provider-neutral intermediate every adapter fills.
type rawArticle struct {
	Title       string
	Description string
	Content     string
	URL         string
	Image       string
	PublishedAt string
	Published   time.Time
	Source      string
	Category    string
}

// normalize maps raw onto an Article. ok is false for unusable items.
func normalize(p Provider, raw rawArticle, q Query, now time.Time) (Article, bool) {
	title := strings.TrimSpace(raw.Title)
	link := strings.TrimSpace(raw.URL)
	if title == "" && link == "" {
		return Article{}, false
	}
	if title == "" {
		title = UntitledTitle
	}

	var id string
	if link != "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()
	} else {
		link = NoURL
		id = uuid.NewSHA1(articleNamespace, []byte(string(p)+"|"+title+"|"+raw.PublishedAt)).String()
	}

	text := raw.Description
	if strings.TrimSpace(text) == "" {
		text = raw.Content
	}

	image := strings.TrimSpace(raw.Image)
	if image == "" {
		image = PlaceholderImage
	}

	source := strings.TrimSpace(raw.Source)
	if source == "" {
		source = string(p)
	}

	category := strings.ToLower(strings.TrimSpace(raw.Category))
	if category == "" {
		category = strings.ToLower(q.Category)
	}

	published := raw.Published
	if published.IsZero() {
		published = parseTime(raw.PublishedAt, now)
	}

	return Article{
		ID:          id,
		Title:       title,
		Snippet:     fetch.Truncate(fetch.ExtractText(text), SnippetLength),
		URL:         link,
		Image:       image,
		PublishedAt: published.UTC().Truncate(time.Second),
		Source:      source,
		Category:    category,
	}, true
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTime(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return now
}

// collect normalizes n items, isolating each one so a panic while reading
// an item drops only that item.
func collect(p Provider, n int, item func(i int) (rawArticle, bool), q Query, now time.Time) []Article {
	out := make([]Article, 0, n)
	for i := 0; i < n; i++ {
		if a, ok := safeItem(p, i, item, q, now); ok {
			out = append(out, a)
		}
	}
	return out
}

func safeItem(p Provider, i int, item func(i int) (rawArticle, bool), q Query, now time.Time) (a Article, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("dropping unreadable article", "provider", p, "index", i, "panic", r)
			a, ok = Article{}, false
		}
	}()
	raw, ok := item(i)
	if !ok {
		return Article{}, false
	}
	return normalize(p, raw, q, now)
}

func pageOrDefault(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func pageSizeOrDefault(size int) int {
	if size < 1 {
		return 10
	}
	return size
}
