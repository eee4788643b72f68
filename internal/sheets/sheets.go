// Package sheets reads and writes the response spreadsheet and the guideline table.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRowOutOfRange is returned for rows past the end of the sheet or the header row.
	ErrRowOutOfRange = errors.New("row out of range")
)

// RowStore accesses spreadsheet rows by header name. Rows are 1-based and row 1 is the header.
type RowStore interface {
	Header(ctx context.Context) ([]string, error)
	Row(ctx context.Context, row int) (map[string]string, error)
	// RowCount returns the index of the last populated row.
	RowCount(ctx context.Context) (int, error)
	// All returns every row, header first.
	All(ctx context.Context) ([][]string, error)
	// WriteCells sets the named columns of row. Columns absent from the header are ignored.
	WriteCells(ctx context.Context, row int, values map[string]string) error
}

// HasColumns reports whether every name appears in header (trimmed, exact case).
func HasColumns(header []string, names ...string) bool {
	idx := ColumnIndex(header)
	for _, n := range names {
		if _, ok := idx[n]; !ok {
			return false
		}
	}
	return true
}

// ColumnIndex maps trimmed header names to 0-based column indexes. The first occurrence wins.
func ColumnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

// Zip pairs header names with cell values. Missing cells become "".
func Zip(header, cells []string) map[string]string {
	out := make(map[string]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, dup := out[name]; dup {
			continue
		}
		if i < len(cells) {
			out[name] = cells[i]
		} else {
			out[name] = ""
		}
	}
	return out
}

// ColumnLetter converts a 0-based column index to A1 notation letters (0 -> A, 26 -> AA).
func ColumnLetter(index int) string {
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func checkRow(row int) error {
	if row < 2 {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	return nil
}
