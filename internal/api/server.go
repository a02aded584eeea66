// Package api provides the REST API server for Newszoid.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vickykunwar/newszoid-backend/internal/library"
	"github.com/Vickykunwar/newszoid-backend/internal/market"
	"github.com/Vickykunwar/newszoid-backend/internal/news/aggregator"
	"github.com/Vickykunwar/newszoid-backend/internal/news/fallback"
	"github.com/Vickykunwar/newszoid-backend/internal/user"
	"github.com/Vickykunwar/newszoid-backend/internal/weather"
)

const maxBodyBytes = 1 << 20

// NewsService answers news queries. *aggregator.Aggregator implements it.
type NewsService interface {
	GetNews(ctx context.Context, category string, page, pageSize int) (*aggregator.Result, error)
	GetLocalNews(ctx context.Context, location string, page, pageSize int) (*aggregator.Result, error)
	AIEnabled() bool
}

// Deps are the services the API is built on.
type Deps struct {
	Users          *user.Store
	News           NewsService
	Fallback       *fallback.Store
	Library        *library.Service
	Weather        *weather.Service
	Market         *market.Service
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server holds the dependencies for the API.
type Server struct {
	users          *user.Store
	news           NewsService
	fallback       *fallback.Store
	library        *library.Service
	weather        *weather.Service
	market         *market.Service
	jwtSecret      []byte
	tokenTTL       time.Duration
	allowedOrigins map[string]bool
	logger         *slog.Logger
}

// NewServer creates a new API Server instance.
func NewServer(d Deps) *Server {
	s := &Server{
		users:          d.Users,
		news:           d.News,
		fallback:       d.Fallback,
		library:        d.Library,
		weather:        d.Weather,
		market:         d.Market,
		jwtSecret:      []byte(d.JWTSecret),
		tokenTTL:       d.TokenTTL,
		allowedOrigins: make(map[string]bool, len(d.AllowedOrigins)),
		logger:         d.Logger,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = 7 * 24 * time.Hour
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	for _, o := range d.AllowedOrigins {
		s.allowedOrigins[o] = true
	}
	return s
}

// Routes returns the configured http.Handler for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth())

	// News (public)
	mux.HandleFunc("GET /api/news", s.handleNews())
	mux.HandleFunc("GET /api/news/local", s.handleLocalNews())
	mux.HandleFunc("GET /api/news/categories", s.handleCategories())
	mux.HandleFunc("GET /api/weather", s.handleWeather())
	mux.HandleFunc("GET /api/market", s.handleMarket())

	// Auth
	mux.HandleFunc("POST /api/auth/register", s.handleRegister())
	mux.HandleFunc("POST /api/auth/login", s.handleLogin())
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout())
	mux.Handle("GET /api/users/me", s.requireAuth(s.handleGetMe()))

	// Bookmarks
	mux.Handle("POST /api/bookmarks", s.requireAuth(s.handleAddBookmark()))
	mux.Handle("GET /api/bookmarks", s.requireAuth(s.handleListBookmarks()))
	mux.Handle("DELETE /api/bookmarks/{id}", s.requireAuth(s.handleRemoveBookmark()))

	// Comments
	mux.HandleFunc("GET /api/comments", s.handleListComments())
	mux.Handle("POST /api/comments", s.requireAuth(s.handleAddComment()))
	mux.Handle("DELETE /api/comments/{id}", s.requireAuth(s.handleDeleteComment()))

	// Reading history
	mux.Handle("POST /api/history", s.requireAuth(s.handleRecordHistory()))
	mux.Handle("GET /api/history", s.requireAuth(s.handleListHistory()))
	mux.Handle("DELETE /api/history", s.requireAuth(s.handleClearHistory()))

	return s.recoverPanics(s.logRequests(securityHeaders(s.cors(mux))))
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"ok": false, "error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
