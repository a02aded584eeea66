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

const newsAPIBaseURL = "https://newsapi.org"

// removedMarker is the tombstone NewsAPI serves for withdrawn articles.
const removedMarker = "[Removed]"

type newsAPIAdapter struct {
	key  string
	base string
}

func newNewsAPI(cfg ProviderConfig) *newsAPIAdapter {
	base := newsAPIBaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &newsAPIAdapter{key: cfg.APIKey, base: base}
}

func (a *newsAPIAdapter) Provider() Provider { return NewsAPI }

func (a *newsAPIAdapter) Request(q Query) (RequestSpec, error) {
	if strings.TrimSpace(q.Phrase) == "" {
		return RequestSpec{}, fmt.Errorf("newsapi: empty search phrase")
	}
	v := url.Values{}
	v.Set("q", q.Phrase)
	v.Set("language", "en")
	v.Set("sortBy", "publishedAt")
	v.Set("page", strconv.Itoa(pageOrDefault(q.Page)))
	v.Set("pageSize", strconv.Itoa(pageSizeOrDefault(q.PageSize)))
	v.Set("apiKey", a.key)
	return RequestSpec{
		Provider: NewsAPI,
		URL:      a.base + "/v2/everything?" + v.Encode(),
		Timeout:  fetch.DefaultTimeout,
	}, nil
}

type newsAPIPayload struct {
	Status   string            `json:"status"`
	Articles []json.RawMessage `json:"articles"`
}

type newsAPIItem struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

func (a *newsAPIAdapter) Parse(body []byte, q Query, now time.Time) []Article {
	var payload newsAPIPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Warn("newsapi payload unreadable", "error", err)
		return nil
	}
	if payload.Articles == nil {
		slog.Warn("newsapi payload has no articles array", "status", payload.Status)
		return nil
	}

	return collect(NewsAPI, len(payload.Articles), func(i int) (rawArticle, bool) {
		var it newsAPIItem
		if err := json.Unmarshal(payload.Articles[i], &it); err != nil {
			return rawArticle{}, false
		}
		if strings.TrimSpace(it.Title) == removedMarker {
			return rawArticle{}, false
		}
		return rawArticle{
			Title:       it.Title,
			Description: it.Description,
			Content:     it.Content,
			URL:         it.URL,
			Image:       it.URLToImage,
			PublishedAt: it.PublishedAt,
			Source:      it.Source.Name,
		}, true
	}, q, now)
}
