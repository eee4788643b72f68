package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// CSVStore is a RowStore over a local CSV export of the response sheet.
// The whole file is re-read on every call so external edits are picked up.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore returns a store reading path. The file must exist on first access.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) load() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// Header returns the first record.
func (s *CSVStore) Header(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Row returns the given 1-based row keyed by header.
func (s *CSVStore) Row(ctx context.Context, row int) (map[string]string, error) {
	if err := checkRow(row); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	if row > len(records) {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	return Zip(records[0], records[row-1]), nil
}

// RowCount returns the number of records including the header.
func (s *CSVStore) RowCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// All returns every record.
func (s *CSVStore) All(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// WriteCells updates row and rewrites the file via a temp file rename.
func (s *CSVStore) WriteCells(ctx context.Context, row int, values map[string]string) error {
	if err := checkRow(row); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("csv has no header row")
	}
	for len(records) < row {
		records = append(records, nil)
	}
	idx := ColumnIndex(records[0])
	cells := records[row-1]
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
	records[row-1] = cells
	return s.replace(records)
}

func (s *CSVStore) replace(records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rows-*.csv")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

var _ RowStore = (*CSVStore)(nil)

// CSVTable reads a guideline table from a CSV file.
type CSVTable struct {
	Path string
}

// Rows returns all records, header first.
func (t CSVTable) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(t.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.Path, err)
	}
	defer f.Close()
	return readCSV(f)
}
