package store

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

// Query-path tests against a mocked driver, for failure modes a live
// database will not produce on demand.

func TestRepliesToPostWrapsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM posts WHERE reply_to").
		WillReturnError(errors.New("disk I/O error"))

	s := NewWithDB(db)
	if _, err := s.RepliesToPost(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected wrapped query error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetAuthorRejectsMalformedStoredID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "handle", "display_name", "type"}).
		AddRow("not-a-uuid", "ghost", "Ghost", "bot")
	mock.ExpectQuery("SELECT id, handle, display_name, type FROM authors").
		WillReturnRows(rows)

	s := NewWithDB(db)
	if _, err := s.GetAuthor(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for malformed stored id")
	}
}
