package api

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/Vickykunwar/newszoid-backend/internal/user"
)

const (
	minPasswordLength = 8
	// bcrypt ignores bytes past 72.
	maxPasswordLength = 72
	maxNameLength     = 100
	maxEmailLength    = 254
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	OK    bool       `json:"ok"`
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return len(email) <= maxEmailLength && at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		email := user.NormalizeEmail(req.Email)
		if !validEmail(email) {
			respondError(w, http.StatusBadRequest, "A valid email is required")
			return
		}
		if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
			respondError(w, http.StatusBadRequest, "Password must be 8-72 characters")
			return
		}
		if utf8.RuneCountInString(strings.TrimSpace(req.Name)) > maxNameLength {
			respondError(w, http.StatusBadRequest, "Name is too long")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to process password")
			return
		}

		u, err := s.users.CreateUser(r.Context(), email, req.Name, string(hash))
		if errors.Is(err, user.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "Email is already registered")
			return
		}
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to create user", "error", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		token, err := s.generateToken(u.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}
		s.setTokenCookie(w, r, token, int(s.tokenTTL.Seconds()))
		respondJSON(w, http.StatusCreated, authResponse{OK: true, User: u, Token: token})
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		u, err := s.users.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to load user", "error", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if u == nil {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := s.generateToken(u.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}
		s.setTokenCookie(w, r, token, int(s.tokenTTL.Seconds()))
		respondJSON(w, http.StatusOK, authResponse{OK: true, User: u, Token: token})
	}
}

func (s *Server) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.setTokenCookie(w, r, "", -1)
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) handleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.users.GetUserByID(r.Context(), getUserID(r))
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to load user", "error", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if u == nil {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "user": u})
	}
}
