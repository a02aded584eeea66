// Package docstore is a small keyed document store used for bookmarks,
// comments and reading history. Documents live in named collections and
// are looked up by owner and by an application key.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrConflict is returned by Create when a document with the same ID exists.
var ErrConflict = errors.New("document already exists")

// DefaultLimit caps Find results when the query sets no limit.
const DefaultLimit = 100

// Document is one stored record. Body holds the collection-specific JSON.
type Document struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	OwnerID    string          `json:"ownerId,omitempty"`
	Key        string          `json:"key,omitempty"`
	Body       json.RawMessage `json:"body"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Decode unmarshals the body into out.
func (d *Document) Decode(out any) error {
	if err := json.Unmarshal(d.Body, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Query selects documents of one collection. Empty filters match anything.
type Query struct {
	Collection string
	OwnerID    string
	Key        string
	Limit      int
}

// Store is implemented by every backend. Find returns newest first.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, collection, id string) (*Document, error)
	Find(ctx context.Context, q Query) ([]Document, error)
	Delete(ctx context.Context, collection, id string) error
	DeleteWhere(ctx context.Context, q Query) (int, error)
}

// NewDocument marshals body into a document ready for Create.
func NewDocument(collection, ownerID, key string, body any) (*Document, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", collection, err)
	}
	return &Document{Collection: collection, OwnerID: ownerID, Key: key, Body: raw}, nil
}

// prepare validates doc and fills in the ID and creation time.
func prepare(doc *Document, now time.Time) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	if strings.TrimSpace(doc.Collection) == "" {
		return fmt.Errorf("document collection is required")
	}
	if len(doc.Body) == 0 {
		doc.Body = json.RawMessage("{}")
	}
	if !json.Valid(doc.Body) {
		return fmt.Errorf("document body is not valid JSON")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	return nil
}

func limitOf(q Query) int {
	if q.Limit <= 0 || q.Limit > DefaultLimit {
		return DefaultLimit
	}
	return q.Limit
}
