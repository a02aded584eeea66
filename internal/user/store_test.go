package user

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Vickykunwar/newszoid-backend/pkg/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(storage.Config{DSN: filepath.Join(t.TempDir(), "users.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), storage.Schema); err != nil {
		t.Fatal(err)
	}
	return NewStore(db)
}

func TestCreateAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "  Reader@Example.com ", " Asha ", "hash")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == 0 || u.Email != "reader@example.com" || u.Name != "Asha" {
		t.Fatalf("unexpected user %+v", u)
	}

	byEmail, err := s.GetUserByEmail(ctx, "READER@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if byEmail == nil || byEmail.ID != u.ID || byEmail.PasswordHash != "hash" {
		t.Fatalf("unexpected lookup %+v", byEmail)
	}

	byID, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if byID == nil || !byID.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("unexpected lookup %+v", byID)
	}
}

func TestDuplicateEmail(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, "a@b.com", "", "h"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateUser(ctx, "A@B.com", "", "h"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestMissingUser(t *testing.T) {
	s := newStore(t)
	u, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil || u != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", u, err)
	}
}

func TestGetUserQueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()
	mock.ExpectQuery(`SELECT id, email, name, password_hash, created_at FROM users WHERE id = \?`).
		WithArgs(int64(3)).
		WillReturnError(errors.New("disk I/O error"))

	s := NewStore(storage.Wrap(sqlDB))
	if _, err := s.GetUserByID(context.Background(), 3); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
