package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Vickykunwar/newszoid-backend/internal/library"
)

// respondLibraryError maps library errors onto HTTP statuses.
func (s *Server) respondLibraryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, library.ErrDuplicate):
		respondError(w, http.StatusConflict, "Article is already bookmarked")
	case errors.Is(err, library.ErrForbidden):
		respondError(w, http.StatusForbidden, "You can only delete your own comments")
	case errors.Is(err, library.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	default:
		s.logger.ErrorContext(r.Context(), "library operation failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error")
	}
}

func limitParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil && n > 0
}

func (s *Server) handleAddBookmark() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in library.BookmarkInput
		if !decodeJSON(w, r, &in) {
			return
		}
		b, err := s.library.AddBookmark(r.Context(), ownerID(r), in)
		if err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"ok": true, "data": b})
	}
}

func (s *Server) handleListBookmarks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		list, err := s.library.ListBookmarks(r.Context(), ownerID(r), limit)
		if err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "data": list})
	}
}

func (s *Server) handleRemoveBookmark() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.library.RemoveBookmark(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

type commentRequest struct {
	ArticleID string `json:"articleId"`
	Text      string `json:"text"`
}

func (s *Server) handleAddComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		author := "Reader"
		u, err := s.users.GetUserByID(r.Context(), getUserID(r))
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to load user", "error", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if u == nil {
			respondError(w, http.StatusUnauthorized, "User no longer exists")
			return
		}
		if u.Name != "" {
			author = u.Name
		}

		c, err := s.library.AddComment(r.Context(), ownerID(r), author, req.ArticleID, req.Text)
		if err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"ok": true, "data": c})
	}
}

func (s *Server) handleListComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		list, err := s.library.ListComments(r.Context(), r.URL.Query().Get("articleId"), limit)
		if err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "data": list})
	}
}

func (s *Server) handleDeleteComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.library.DeleteComment(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) handleRecordHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in library.HistoryInput
		if !decodeJSON(w, r, &in) {
			return
		}
		e, err := s.library.RecordHistory(r.Context(), ownerID(r), in)
		if err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"ok": true, "data": e})
	}
}

func (s *Server) handleListHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		list, err := s.library.ListHistory(r.Context(), ownerID(r), limit)
		if err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "data": list})
	}
}

func (s *Server) handleClearHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.library.ClearHistory(r.Context(), ownerID(r))
		if err != nil {
			s.respondLibraryError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": n})
	}
}
