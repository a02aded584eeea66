package sources

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/Vickykunwar/newszoid-backend/pkg/fetch"
)

const googleNewsRSSBaseURL = "https://news.google.com"

// rssAdapter searches the Google News RSS endpoint. The feed is not paged
// upstream, so paging is applied to the parsed items.
type rssAdapter struct {
	base string
}

func newRSSAdapter(cfg ProviderConfig) *rssAdapter {
	base := googleNewsRSSBaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &rssAdapter{base: base}
}

func (a *rssAdapter) Provider() Provider { return RSS }

func (a *rssAdapter) Request(q Query) (RequestSpec, error) {
	if strings.TrimSpace(q.Phrase) == "" {
		return RequestSpec{}, fmt.Errorf("rss: empty search phrase")
	}
	v := url.Values{}
	v.Set("q", q.Phrase)
	v.Set("hl", "en-IN")
	v.Set("gl", "IN")
	v.Set("ceid", "IN:en")
	return RequestSpec{
		Provider: RSS,
		URL:      a.base + "/rss/search?" + v.Encode(),
		Timeout:  fetch.DefaultTimeout,
	}, nil
}

func (a *rssAdapter) Parse(body []byte, q Query, now time.Time) []Article {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		slog.Warn("rss payload unreadable", "error", err)
		return nil
	}

	size := pageSizeOrDefault(q.PageSize)
	start := (pageOrDefault(q.Page) - 1) * size
	if start >= len(feed.Items) {
		return nil
	}
	items := feed.Items[start:min(start+size, len(feed.Items))]

	return collect(RSS, len(items), func(i int) (rawArticle, bool) {
		it := items[i]
		if it == nil {
			return rawArticle{}, false
		}

		title, source := splitPublisher(strings.TrimSpace(it.Title))
		if source == "" && it.Author != nil {
			source = it.Author.Name
		}
		if source == "" {
			source = feed.Title
		}

		raw := rawArticle{
			Title:       title,
			Description: it.Description,
			Content:     it.Content,
			URL:         it.Link,
			Image:       itemImage(it),
			PublishedAt: it.Published,
			Source:      source,
		}
		switch {
		case it.PublishedParsed != nil:
			raw.Published = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			raw.Published = *it.UpdatedParsed
		}
		return raw, true
	}, q, now)
}

// splitPublisher separates Google News' "Headline - Publisher" titles.
func splitPublisher(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}

// itemImage returns the feed image, an image enclosure, or the first <img>
// embedded in the description markup.
func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	for _, markup := range []string{it.Description, it.Content} {
		if !strings.Contains(markup, "<img") {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img[src]").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			return strings.TrimSpace(src)
		}
	}
	return ""
}
