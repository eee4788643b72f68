package forms

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, form_id, sheet_row, file_id, url, regenerated, created_at`

// Create inserts a form record.
func (r *PGRepo) Create(ctx context.Context, form Form) error {
	const query = `
INSERT INTO generated_forms (
    id, form_id, sheet_row, file_id, url, regenerated, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		form.ID,
		form.FormID,
		form.Row,
		form.FileID,
		form.URL,
		form.Regenerated,
		form.CreatedAt,
	)
	return err
}

// GetByID returns a form record by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Form, error) {
	const query = `
SELECT ` + selectColumns + `
FROM generated_forms
WHERE id = $1
LIMIT 1`
	form, err := scanForm(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Form{}, ErrNotFound
		}
		return Form{}, err
	}
	return form, nil
}

// ListByFormID lists all PDFs generated for a form id, newest first.
func (r *PGRepo) ListByFormID(ctx context.Context, formID string) ([]Form, error) {
	const query = `
SELECT ` + selectColumns + `
FROM generated_forms
WHERE form_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// List lists form records ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Form, error) {
	limit, offset = clampPage(limit, offset)
	const query = `
SELECT ` + selectColumns + `
FROM generated_forms
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(s scanner) (Form, error) {
	var form Form
	err := s.Scan(
		&form.ID,
		&form.FormID,
		&form.Row,
		&form.FileID,
		&form.URL,
		&form.Regenerated,
		&form.CreatedAt,
	)
	return form, err
}

func collect(rows *sql.Rows) ([]Form, error) {
	defer rows.Close()
	out := []Form{}
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, form)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
