package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory RowStore for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	header []string
	rows   [][]string
}

// NewMemoryStore copies header and data rows; rows[0] is sheet row 2.
func NewMemoryStore(header []string, rows ...[]string) *MemoryStore {
	m := &MemoryStore{header: append([]string(nil), header...)}
	for _, r := range rows {
		m.rows = append(m.rows, append([]string(nil), r...))
	}
	return m
}

// Header returns the header row.
func (m *MemoryStore) Header(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.header...), ctx.Err()
}

// Row returns row keyed by header name.
func (m *MemoryStore) Row(ctx context.Context, row int) (map[string]string, error) {
	if err := checkRow(row); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row-2 >= len(m.rows) {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	return Zip(m.header, m.rows[row-2]), ctx.Err()
}

// RowCount returns the last row index.
func (m *MemoryStore) RowCount(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows) + 1, ctx.Err()
}

// All returns copies of the header and every row.
func (m *MemoryStore) All(ctx context.Context) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := [][]string{append([]string(nil), m.header...)}
	for _, r := range m.rows {
		out = append(out, append([]string(nil), r...))
	}
	return out, ctx.Err()
}

// WriteCells sets known columns of row.
func (m *MemoryStore) WriteCells(ctx context.Context, row int, values map[string]string) error {
	if err := checkRow(row); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.rows) < row-1 {
		m.rows = append(m.rows, nil)
	}
	idx := ColumnIndex(m.header)
	cells := m.rows[row-2]
	for name, v := range values {
		i, ok := idx[name]
		if !ok {
			continue
		}
		for len(cells) <= i {
			cells = append(cells, "")
		}
		cells[i] = v
	}
	m.rows[row-2] = cells
	return nil
}

var _ RowStore = (*MemoryStore)(nil)
