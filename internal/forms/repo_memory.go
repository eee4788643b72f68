package forms

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores form records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]Form
	byFormID map[string][]Form
	all      []Form
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Form),
		byFormID: make(map[string][]Form),
	}
}

// Create stores the form record.
func (r *MemoryRepo) Create(ctx context.Context, form Form) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[form.ID] = form
	r.byFormID[form.FormID] = append(r.byFormID[form.FormID], form)
	r.all = append(r.all, form)
	return nil
}

// GetByID returns a form record by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Form, error) {
	if err := ctx.Err(); err != nil {
		return Form{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	form, ok := r.byID[id]
	if !ok {
		return Form{}, ErrNotFound
	}
	return form, nil
}

// ListByFormID returns every PDF generated for a form id, newest first.
func (r *MemoryRepo) ListByFormID(ctx context.Context, formID string) ([]Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Form, len(r.byFormID[formID]))
	copy(out, r.byFormID[formID])
	r.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

// List returns form records newest first with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	forms := make([]Form, len(r.all))
	copy(forms, r.all)
	r.mu.RUnlock()

	if offset >= len(forms) {
		return []Form{}, nil
	}
	sortNewestFirst(forms)
	end := len(forms)
	if offset+limit < end {
		end = offset + limit
	}
	return forms[offset:end], nil
}

func sortNewestFirst(forms []Form) {
	sort.SliceStable(forms, func(i, j int) bool {
		return forms[i].CreatedAt.After(forms[j].CreatedAt)
	})
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ Repo = (*MemoryRepo)(nil)
