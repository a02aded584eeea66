package fallback

import (
	"testing"
	"time"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestGetTechnology(t *testing.T) {
	s := New(now)
	got := s.Get("technology")
	if len(got) != 2 {
		t.Fatalf("expected 2 technology articles, got %d", len(got))
	}
	for _, a := range got {
		if a.Category != "technology" || a.ID == "" || a.Title == "" {
			t.Fatalf("incomplete article %+v", a)
		}
	}
}

func TestGetUnknownFallsBackToGeneral(t *testing.T) {
	s := New(now)
	got := s.Get("underwater-basket-weaving")
	want := s.Get(General)
	if len(got) == 0 || len(got) != len(want) || got[0].ID != want[0].ID {
		t.Fatalf("expected general set, got %+v", got)
	}
	if sports := s.Get(" Sports "); len(sports) == 0 || sports[0].Category != "sports" {
		t.Fatalf("lookup must be case-insensitive, got %+v", sports)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(now)
	first := s.Get("sports")
	first[0].Title = "mutated"
	if s.Get("sports")[0].Title == "mutated" {
		t.Fatal("callers must not be able to mutate the store")
	}
}

func TestSortedNewestFirst(t *testing.T) {
	s := New(now)
	for c := range s.byCategory {
		items := s.Get(c)
		for i := 1; i < len(items); i++ {
			if items[i].PublishedAt.After(items[i-1].PublishedAt) {
				t.Fatalf("%s: items out of order at %d", c, i)
			}
		}
	}
}

func TestUniqueIDs(t *testing.T) {
	s := New(now)
	seen := map[string]bool{}
	for c := range s.byCategory {
		for _, a := range s.Get(c) {
			if seen[a.ID] {
				t.Fatalf("duplicate id %s", a.ID)
			}
			seen[a.ID] = true
		}
	}
}

func TestLocal(t *testing.T) {
	s := New(now)
	got := s.Local("mumbai")
	if len(got) != 1 {
		t.Fatalf("expected one local record, got %d", len(got))
	}
	if got[0].Title != "Latest news from Mumbai" {
		t.Fatalf("unexpected title %q", got[0].Title)
	}
	if !got[0].PublishedAt.Equal(now) {
		t.Fatalf("unexpected time %s", got[0].PublishedAt)
	}
	if s.Local("pune")[0].ID == got[0].ID {
		t.Fatal("locations must get distinct ids")
	}
}

func TestEveryCategoryHasArticles(t *testing.T) {
	s := New(now)
	for c := range seeds {
		if len(s.byCategory[c]) == 0 {
			t.Fatalf("%s has no canned articles", c)
		}
	}
}
