package sources

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Vickykunwar/newszoid-backend/pkg/fetch"
)

const gnewsBaseURL = "https://gnews.io"

type gnewsAdapter struct {
	key  string
	base string
}

func newGNews(cfg ProviderConfig) *gnewsAdapter {
	base := gnewsBaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &gnewsAdapter{key: cfg.APIKey, base: base}
}

func (a *gnewsAdapter) Provider() Provider { return GNews }

func (a *gnewsAdapter) Request(q Query) (RequestSpec, error) {
	if strings.TrimSpace(q.Phrase) == "" {
		return RequestSpec{}, fmt.Errorf("gnews: empty search phrase")
	}
	v := url.Values{}
	v.Set("q", q.Phrase)
	v.Set("lang", "en")
	v.Set("max", strconv.Itoa(pageSizeOrDefault(q.PageSize)))
	v.Set("page", strconv.Itoa(pageOrDefault(q.Page)))
	v.Set("apikey", a.key)
	return RequestSpec{
		Provider: GNews,
		URL:      a.base + "/api/v4/search?" + v.Encode(),
		Timeout:  fetch.DefaultTimeout,
	}, nil
}

type gnewsPayload struct {
	TotalArticles int               `json:"totalArticles"`
	Articles      []json.RawMessage `json:"articles"`
}

// gnewsItem differs from NewsAPI: the image is "image" and the source
// carries its own url.
type gnewsItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

func (a *gnewsAdapter) Parse(body []byte, q Query, now time.Time) []Article {
	var payload gnewsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Warn("gnews payload unreadable", "error", err)
		return nil
	}
	if payload.Articles == nil {
		slog.Warn("gnews payload has no articles array")
		return nil
	}

	return collect(GNews, len(payload.Articles), func(i int) (rawArticle, bool) {
		var it gnewsItem
		if err := json.Unmarshal(payload.Articles[i], &it); err != nil {
			return rawArticle{}, false
		}
		return rawArticle{
			Title:       it.Title,
			Description: it.Description,
			Content:     it.Content,
			URL:         it.URL,
			Image:       it.Image,
			PublishedAt: it.PublishedAt,
			Source:      it.Source.Name,
		}, true
	}, q, now)
}
