// Package library implements the per-reader features backed by the
// document store: bookmarks, comments and reading history.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Vickykunwar/newszoid-backend/internal/docstore"
)

var (
	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("invalid input")
	// ErrDuplicate is returned when an article is already bookmarked.
	ErrDuplicate = errors.New("already bookmarked")
	// ErrForbidden is returned when a reader touches someone else's comment.
	ErrForbidden = errors.New("not allowed")
	// ErrNotFound is returned for missing or foreign records.
	ErrNotFound = docstore.ErrNotFound
)

const (
	CollectionBookmarks = "bookmarks"
	CollectionComments  = "comments"
	CollectionHistory   = "history"

	MaxCommentLength = 1000
	MaxTitleLength   = 300
	MaxURLLength     = 2048
	DefaultListLimit = 50
)

// Service implements the library features over a docstore.Store.
type Service struct {
	store docstore.Store
}

// New creates a Service.
func New(store docstore.Store) *Service {
	return &Service{store: store}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func checkArticle(articleID, title, url string) error {
	if strings.TrimSpace(articleID) == "" {
		return invalid("articleId is required")
	}
	if utf8.RuneCountInString(articleID) > 200 {
		return invalid("articleId is too long")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return invalid("title must be at most %d characters", MaxTitleLength)
	}
	if len(url) > MaxURLLength {
		return invalid("url is too long")
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, docstore.DefaultLimit)
}

// find loads and decodes documents of one collection into T values,
// letting fill copy the document metadata.
func find[T any](ctx context.Context, store docstore.Store, q docstore.Query, fill func(*T, *docstore.Document)) ([]T, error) {
	docs, err := store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for i := range docs {
		var v T
		if err := docs[i].Decode(&v); err != nil {
			return nil, err
		}
		fill(&v, &docs[i])
		out = append(out, v)
	}
	return out, nil
}

// Bookmark is a saved article.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ArticleID string    `json:"articleId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Image     string    `json:"image,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookmarkInput is what a reader submits.
type BookmarkInput struct {
	ArticleID string `json:"articleId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Image     string `json:"image"`
	Source    string `json:"source"`
}

var bookmarkNamespace = uuid.MustParse("3b8f6d52-1c47-5e0a-9f2d-7a6c4e1b9d03")

// BookmarkID is the stable document ID of userID's bookmark of articleID.
// The store rejects a second Create under the same ID.
func BookmarkID(userID, articleID string) string {
	return uuid.NewSHA1(bookmarkNamespace, []byte(userID+"|"+articleID)).String()
}

// AddBookmark saves an article for userID. Each article can be saved once.
func (s *Service) AddBookmark(ctx context.Context, userID string, in BookmarkInput) (*Bookmark, error) {
	in.ArticleID = strings.TrimSpace(in.ArticleID)
	in.Title = strings.TrimSpace(in.Title)
	if err := checkArticle(in.ArticleID, in.Title, in.URL); err != nil {
		return nil, err
	}

	b := &Bookmark{
		UserID:    userID,
		ArticleID: in.ArticleID,
		Title:     in.Title,
		URL:       in.URL,
		Image:     in.Image,
		Source:    in.Source,
	}
	doc, err := docstore.NewDocument(CollectionBookmarks, userID, in.ArticleID, b)
	if err != nil {
		return nil, err
	}
	doc.ID = BookmarkID(userID, in.ArticleID)
	err = s.store.Create(ctx, doc)
	if errors.Is(err, docstore.ErrConflict) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("save bookmark: %w", err)
	}
	b.ID, b.CreatedAt = doc.ID, doc.CreatedAt
	return b, nil
}

// ListBookmarks returns userID's bookmarks, newest first.
func (s *Service) ListBookmarks(ctx context.Context, userID string, limit int) ([]Bookmark, error) {
	return find(ctx, s.store, docstore.Query{Collection: CollectionBookmarks, OwnerID: userID, Limit: listLimit(limit)},
		func(b *Bookmark, d *docstore.Document) { b.ID, b.CreatedAt = d.ID, d.CreatedAt })
}

// RemoveBookmark deletes one of userID's bookmarks. Foreign bookmarks
// report ErrNotFound.
func (s *Service) RemoveBookmark(ctx context.Context, userID, id string) error {
	doc, err := s.store.Get(ctx, CollectionBookmarks, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != userID {
		return ErrNotFound
	}
	return s.store.Delete(ctx, CollectionBookmarks, id)
}

// Comment is a reader's comment on an article.
type Comment struct {
	ID         string    `json:"id"`
	ArticleID  string    `json:"articleId"`
	UserID     string    `json:"userId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AddComment stores a comment. Text must be 1 to MaxCommentLength characters.
func (s *Service) AddComment(ctx context.Context, userID, authorName, articleID, text string) (*Comment, error) {
	articleID = strings.TrimSpace(articleID)
	text = strings.TrimSpace(text)
	if err := checkArticle(articleID, "", ""); err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxCommentLength {
		return nil, invalid("text must be 1-%d characters", MaxCommentLength)
	}

	c := &Comment{ArticleID: articleID, UserID: userID, AuthorName: authorName, Text: text}
	doc, err := docstore.NewDocument(CollectionComments, userID, articleID, c)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("save comment: %w", err)
	}
	c.ID, c.CreatedAt = doc.ID, doc.CreatedAt
	return c, nil
}

// ListComments returns the comments on an article, newest first.
func (s *Service) ListComments(ctx context.Context, articleID string, limit int) ([]Comment, error) {
	articleID = strings.TrimSpace(articleID)
	if err := checkArticle(articleID, "", ""); err != nil {
		return nil, err
	}
	return find(ctx, s.store, docstore.Query{Collection: CollectionComments, Key: articleID, Limit: listLimit(limit)},
		func(c *Comment, d *docstore.Document) { c.ID, c.CreatedAt = d.ID, d.CreatedAt })
}

// DeleteComment removes a comment. Only its author may do so.
func (s *Service) DeleteComment(ctx context.Context, userID, id string) error {
	doc, err := s.store.Get(ctx, CollectionComments, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != userID {
		return ErrForbidden
	}
	return s.store.Delete(ctx, CollectionComments, id)
}

// HistoryEntry records that a reader opened an article.
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ArticleID string    `json:"articleId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Category  string    `json:"category,omitempty"`
	ReadAt    time.Time `json:"readAt"`
}

// HistoryInput is what a client reports when an article is read.
type HistoryInput struct {
	ArticleID string `json:"articleId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Category  string `json:"category"`
}

// RecordHistory appends a read event for userID.
func (s *Service) RecordHistory(ctx context.Context, userID string, in HistoryInput) (*HistoryEntry, error) {
	in.ArticleID = strings.TrimSpace(in.ArticleID)
	in.Title = strings.TrimSpace(in.Title)
	if err := checkArticle(in.ArticleID, in.Title, in.URL); err != nil {
		return nil, err
	}
	h := &HistoryEntry{
		UserID:    userID,
		ArticleID: in.ArticleID,
		Title:     in.Title,
		URL:       in.URL,
		Category:  strings.ToLower(strings.TrimSpace(in.Category)),
	}
	doc, err := docstore.NewDocument(CollectionHistory, userID, in.ArticleID, h)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	h.ID, h.ReadAt = doc.ID, doc.CreatedAt
	return h, nil
}

// ListHistory returns userID's most recent reads.
func (s *Service) ListHistory(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	return find(ctx, s.store, docstore.Query{Collection: CollectionHistory, OwnerID: userID, Limit: listLimit(limit)},
		func(h *HistoryEntry, d *docstore.Document) { h.ID, h.ReadAt = d.ID, d.CreatedAt })
}

// ClearHistory deletes all of userID's history and reports how many
// entries were removed.
func (s *Service) ClearHistory(ctx context.Context, userID string) (int, error) {
	n, err := s.store.DeleteWhere(ctx, docstore.Query{Collection: CollectionHistory, OwnerID: userID})
	if err != nil {
		return n, fmt.Errorf("clear history: %w", err)
	}
	return n, nil
}
