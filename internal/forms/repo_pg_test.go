package forms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	form := Form{
		ID:        "6f1c1c1e-0000-4000-8000-000000000001",
		FormID:    "100000000543",
		Row:       5,
		FileID:    "drive-file",
		URL:       "https://drive.example/file",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO generated_forms").
		WithArgs(form.ID, form.FormID, form.Row, form.FileID, form.URL, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), form); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT (.+) FROM generated_forms").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_id", "sheet_row", "file_id", "url", "regenerated", "created_at"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListClampsPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	created := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "form_id", "sheet_row", "file_id", "url", "regenerated", "created_at"}).
		AddRow("id-1", "100000000543", 2, "f1", "u1", false, created).
		AddRow("id-2", "100000000544", 3, "f2", "u2", true, created)
	mock.ExpectQuery("SELECT (.+) FROM generated_forms").
		WithArgs(100, 0).
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	got, err := repo.List(context.Background(), 500, -3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[1].FormID != "100000000544" || !got[1].Regenerated {
		t.Fatalf("unexpected rows %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
