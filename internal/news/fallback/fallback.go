// Package fallback holds the canned articles served when no live provider
// returns anything.
package fallback

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Vickykunwar/newszoid-backend/internal/news/sources"
)

// General is the category used for unknown requests.
const General = "general"

const sourceName = "Newszoid Desk"

var namespace = uuid.MustParse("0b8f6f9e-3c0a-4d55-9b1e-7a4f2e6c9d30")

type seed struct {
	title   string
	snippet string
}

var seeds = map[string][]seed{
	General: {
		{"Newszoid is warming up", "Live headlines are temporarily unavailable. Top stories will appear here as soon as our sources respond."},
		{"Stay informed with Newszoid", "Browse categories such as technology, business and sports to follow the topics you care about."},
		{"Bookmark stories to read later", "Signed in readers can save articles and pick up where they left off on any device."},
	},
	"technology": {
		{"India's startup ecosystem keeps growing", "New funding rounds and product launches continue across Bengaluru, Delhi NCR and Hyderabad."},
		{"AI tools reach more classrooms", "Schools and colleges are experimenting with AI assistants for lessons, grading and language support."},
	},
	"business": {
		{"Markets watch global cues", "Investors track interest rate signals and crude prices ahead of the trading session."},
		{"Small businesses go digital", "UPI adoption and online storefronts are changing how neighbourhood shops reach customers."},
	},
	"sports": {
		{"Cricket season heats up", "Teams finalise squads as the domestic calendar enters its busiest stretch."},
		{"Athletes prepare for the next championship", "Training camps focus on fitness and recovery ahead of international events."},
	},
	"entertainment": {
		{"Weekend releases to watch", "A fresh slate of films and series arrives in theatres and on streaming platforms."},
		{"Music festivals return", "Organisers announce line-ups for the upcoming festival season."},
	},
	"health": {
		{"Seasonal health advisory", "Doctors recommend hydration and timely vaccination as the weather changes."},
		{"Simple habits for better sleep", "Experts share routines that help improve sleep quality."},
	},
	"science": {
		{"Space missions on the horizon", "Upcoming launches aim to study the Moon, the Sun and near-Earth objects."},
		{"Researchers track monsoon patterns", "New climate models improve rainfall forecasts for farmers."},
	},
	"politics": {
		{"Parliament session preview", "Key bills and debates expected in the upcoming session."},
		{"State elections update", "Parties sharpen campaigns as polling dates approach."},
	},
	"world": {
		{"Global leaders meet on climate", "Talks focus on financing the energy transition for developing economies."},
		{"Trade corridors in focus", "New shipping and rail links aim to speed up regional trade."},
	},
}

// Store is the read-only fallback data set. Safe for concurrent use.
type Store struct {
	byCategory map[string][]sources.Article
	now        time.Time
}

// New builds the store with publication times anchored at now.
func New(now time.Time) *Store {
	now = now.UTC().Truncate(time.Second)
	s := &Store{byCategory: make(map[string][]sources.Article, len(seeds)), now: now}
	for category, items := range seeds {
		articles := make([]sources.Article, 0, len(items))
		for i, it := range items {
			articles = append(articles, build(category, it.title, it.snippet, now.Add(-time.Duration(i)*time.Hour)))
		}
		s.byCategory[category] = articles
	}
	return s
}

func build(category, title, snippet string, published time.Time) sources.Article {
	return sources.Article{
		ID:          uuid.NewSHA1(namespace, []byte(category+"|"+title)).String(),
		Title:       title,
		Snippet:     snippet,
		URL:         sources.NoURL,
		Image:       sources.PlaceholderImage,
		PublishedAt: published,
		Source:      sourceName,
		Category:    category,
	}
}

// Get returns a copy of the canned articles for category, or the general
// set when the category is unknown.
func (s *Store) Get(category string) []sources.Article {
	items, ok := s.byCategory[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		items = s.byCategory[General]
	}
	out := make([]sources.Article, len(items))
	copy(out, items)
	return out
}

// Local returns the generic record served for a location query.
func (s *Store) Local(location string) []sources.Article {
	name := strings.TrimSpace(location)
	if name == "" {
		name = "your city"
	}
	r, size := utf8.DecodeRuneInString(name)
	display := string(unicode.ToUpper(r)) + name[size:]
	return []sources.Article{
		build("local", "Latest news from "+display,
			"Local coverage for "+display+" is unavailable right now. Please check back in a few minutes.",
			s.now),
	}
}
