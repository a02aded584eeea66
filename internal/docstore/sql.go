package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vickykunwar/newszoid-backend/pkg/storage"
)

// SQLStore keeps documents in the documents table.
type SQLStore struct {
	db  *storage.DB
	now func() time.Time
}

// NewSQLStore creates a store over db. The schema must already be applied.
func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Create(ctx context.Context, doc *Document) error {
	if err := prepare(doc, s.now()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, owner_id, doc_key, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Collection, doc.OwnerID, doc.Key, string(doc.Body), doc.CreatedAt.UnixNano())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s/%s", ErrConflict, doc.Collection, doc.ID)
	}
	if err != nil {
		return fmt.Errorf("insert %s document: %w", doc.Collection, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, collection, owner_id, doc_key, body, created_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *SQLStore) Find(ctx context.Context, q Query) ([]Document, error) {
	where, args := whereClause(q)
	args = append(args, limitOf(q))
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, collection, owner_id, doc_key, body, created_at FROM documents WHERE `+where+
			` ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteWhere(ctx context.Context, q Query) (int, error) {
	where, args := whereClause(q)
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", q.Collection, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func whereClause(q Query) (string, []any) {
	conds := []string{"collection = ?"}
	args := []any{q.Collection}
	if q.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if q.Key != "" {
		conds = append(conds, "doc_key = ?")
		args = append(args, q.Key)
	}
	return strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var (
		doc     Document
		body    string
		created int64
	)
	if err := sc.Scan(&doc.ID, &doc.Collection, &doc.OwnerID, &doc.Key, &body, &created); err != nil {
		return nil, err
	}
	doc.Body = []byte(body)
	doc.CreatedAt = time.Unix(0, created).UTC()
	return &doc, nil
}
