package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Vickykunwar/newszoid-backend/internal/news/aggregator"
	"github.com/Vickykunwar/newszoid-backend/internal/news/sources"
)

const (
	maxCategoryLength = 50
	minLocationLength = 2
	maxLocationLength = 100
)

type newsResponse struct {
	OK         bool              `json:"ok"`
	FromCache  bool              `json:"fromCache"`
	AIEnabled  bool              `json:"aiEnabled"`
	IsFallback bool              `json:"isFallback"`
	Category   string            `json:"category,omitempty"`
	Location   string            `json:"location,omitempty"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	Data       []sources.Article `json:"data"`
}

// pageParam reads a positive integer query parameter. Missing means def;
// values above upper are clamped.
func pageParam(r *http.Request, name string, def, upper int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && raw[0] != '-' {
		return upper, nil
	}
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return min(n, upper), nil
}

// validText checks a free-text query value: lo to hi runes of valid UTF-8
// without control characters.
func validText(s string, lo, hi int) bool {
	if !utf8.ValidString(s) {
		return false
	}
	if n := utf8.RuneCountInString(s); n < lo || n > hi {
		return false
	}
	return !strings.ContainsFunc(s, unicode.IsControl)
}

func pagination(r *http.Request, maxPage, maxPageSize int) (page, pageSize int, err error) {
	if page, err = pageParam(r, "page", 1, maxPage); err != nil {
		return 0, 0, err
	}
	if pageSize, err = pageParam(r, "pageSize", aggregator.DefaultPageSize, maxPageSize); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func (s *Server) handleNews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		if category == "" {
			category = aggregator.DefaultCategory
		}
		if !validText(category, 1, maxCategoryLength) {
			respondError(w, http.StatusBadRequest, "category must be 1-50 characters")
			return
		}
		page, pageSize, err := pagination(r, aggregator.MaxPage, aggregator.MaxPageSize)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := s.news.GetNews(r.Context(), category, page, pageSize)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "news aggregation failed", "category", category, "error", err)
			respondJSON(w, http.StatusOK, map[string]any{
				"ok":         true,
				"isFallback": true,
				"error":      "News providers are unavailable",
				"category":   category,
				"data":       s.fallback.Get(strings.ToLower(category)),
			})
			return
		}
		s.respondNews(w, res, newsResponse{Category: res.Key})
	}
}

func (s *Server) handleLocalNews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		if location == "" {
			location = aggregator.DefaultLocation
		}
		if !validText(location, minLocationLength, maxLocationLength) {
			respondError(w, http.StatusBadRequest, "location must be 2-100 characters")
			return
		}
		page, pageSize, err := pagination(r, aggregator.MaxLocalPage, aggregator.MaxLocalPageSize)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := s.news.GetLocalNews(r.Context(), location, page, pageSize)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "local news aggregation failed", "location", location, "error", err)
			respondJSON(w, http.StatusOK, map[string]any{
				"ok":         true,
				"isFallback": true,
				"error":      "News providers are unavailable",
				"location":   location,
				"data":       s.fallback.Local(location),
			})
			return
		}
		s.respondNews(w, res, newsResponse{Location: res.Key})
	}
}

func (s *Server) respondNews(w http.ResponseWriter, res *aggregator.Result, out newsResponse) {
	out.OK = true
	out.FromCache = res.FromCache
	out.AIEnabled = s.news.AIEnabled()
	out.IsFallback = res.IsFallback
	out.Total = res.Total
	out.Page = res.Page
	out.PageSize = res.PageSize
	out.Data = res.Articles
	if out.Data == nil {
		out.Data = []sources.Article{}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"ok":   true,
			"data": aggregator.Categories(),
		})
	}
}
