package library

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vickykunwar/newszoid-backend/internal/docstore"
	"github.com/Vickykunwar/newszoid-backend/pkg/storage"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := storage.Open(storage.Config{DSN: filepath.Join(t.TempDir(), "library.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), storage.Schema); err != nil {
		t.Fatal(err)
	}
	return New(docstore.NewSQLStore(db))
}

func TestBookmarks(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	b, err := s.AddBookmark(ctx, "1", BookmarkInput{ArticleID: "art-1", Title: " Rain in Delhi ", URL: "https://x/1"})
	if err != nil {
		t.Fatal(err)
	}
	if b.ID == "" || b.Title != "Rain in Delhi" || b.CreatedAt.IsZero() {
		t.Fatalf("unexpected bookmark %+v", b)
	}

	if _, err := s.AddBookmark(ctx, "1", BookmarkInput{ArticleID: "art-1", Title: "again"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.AddBookmark(ctx, "2", BookmarkInput{ArticleID: "art-1", Title: "other reader"}); err != nil {
		t.Fatalf("another reader may bookmark the same article: %v", err)
	}

	list, err := s.ListBookmarks(ctx, "1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != b.ID || list[0].ArticleID != "art-1" {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := s.RemoveBookmark(ctx, "2", b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign bookmark must look missing, got %v", err)
	}
	if err := s.RemoveBookmark(ctx, "1", b.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveBookmark(ctx, "1", b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.AddBookmark(ctx, "1", BookmarkInput{ArticleID: "art-1", Title: "saved again"}); err != nil {
		t.Fatalf("a removed bookmark can be saved again: %v", err)
	}
}

// slowStore delays every Create so that concurrent callers overlap.
type slowStore struct {
	docstore.Store
	delay time.Duration
}

func (s slowStore) Create(ctx context.Context, doc *docstore.Document) error {
	time.Sleep(s.delay)
	return s.Store.Create(ctx, doc)
}

func TestConcurrentBookmarksStoreOnce(t *testing.T) {
	db, err := storage.Open(storage.Config{DSN: filepath.Join(t.TempDir(), "library.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), storage.Schema); err != nil {
		t.Fatal(err)
	}
	s := New(slowStore{Store: docstore.NewSQLStore(db), delay: 5 * time.Millisecond})
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.AddBookmark(ctx, "1", BookmarkInput{ArticleID: "art-1", Title: "Rain"})
		}()
	}
	wg.Wait()

	saved := 0
	for _, err := range errs {
		switch {
		case err == nil:
			saved++
		case !errors.Is(err, ErrDuplicate):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if saved != 1 {
		t.Fatalf("expected exactly one successful save, got %d", saved)
	}
	list, err := s.ListBookmarks(ctx, "1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("duplicate bookmarks stored: %d", len(list))
	}
}

func TestBookmarkIDStable(t *testing.T) {
	if BookmarkID("1", "art-1") != BookmarkID("1", "art-1") {
		t.Fatal("same reader and article must give the same id")
	}
	if BookmarkID("1", "art-1") == BookmarkID("2", "art-1") || BookmarkID("1", "art-1") == BookmarkID("1", "art-2") {
		t.Fatal("ids must differ per reader and article")
	}
}

func TestBookmarkValidation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	if _, err := s.AddBookmark(ctx, "1", BookmarkInput{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := s.AddBookmark(ctx, "1", BookmarkInput{ArticleID: "a", Title: strings.Repeat("t", MaxTitleLength+1)}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for long title, got %v", err)
	}
}

func TestComments(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	c, err := s.AddComment(ctx, "1", "Asha", "art-9", "  Great piece  ")
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "Great piece" || c.AuthorName != "Asha" {
		t.Fatalf("unexpected comment %+v", c)
	}
	if _, err := s.AddComment(ctx, "2", "Ravi", "art-9", "Agreed"); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListComments(ctx, "art-9", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(list))
	}

	if err := s.DeleteComment(ctx, "2", c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := s.DeleteComment(ctx, "1", c.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteComment(ctx, "1", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommentLength(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for _, text := range []string{"", "   ", strings.Repeat("é", MaxCommentLength+1)} {
		if _, err := s.AddComment(ctx, "1", "A", "art", text); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %d chars, got %v", len(text), err)
		}
	}
	if _, err := s.AddComment(ctx, "1", "A", "art", strings.Repeat("é", MaxCommentLength)); err != nil {
		t.Fatalf("max length comment rejected: %v", err)
	}
}

func TestHistory(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.RecordHistory(ctx, "1", HistoryInput{ArticleID: id, Title: "T " + id, Category: "Sports"}); err != nil {
			t.Fatal(err)
		}
	}
	s.RecordHistory(ctx, "2", HistoryInput{ArticleID: "z", Title: "other"})

	list, err := s.ListHistory(ctx, "1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Category != "sports" || list[0].ReadAt.IsZero() {
		t.Fatalf("unexpected history %+v", list)
	}

	n, err := s.ClearHistory(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 cleared, got %d", n)
	}
	left, _ := s.ListHistory(ctx, "2", 0)
	if len(left) != 1 {
		t.Fatal("clearing one reader's history must not touch another's")
	}
}
