package forms

import "context"

// Repo defines persistence operations for generated form records.
type Repo interface {
	Create(ctx context.Context, form Form) error
	GetByID(ctx context.Context, id string) (Form, error)
	ListByFormID(ctx context.Context, formID string) ([]Form, error)
	List(ctx context.Context, limit, offset int) ([]Form, error)
}
