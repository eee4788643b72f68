package sheets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"pantry-intake/internal/shared/telemetry"
)

// Scope is the OAuth scope needed for read and write access.
const Scope = sheetsapi.SpreadsheetsScope

// GoogleStore is a RowStore backed by one tab of a Google spreadsheet.
type GoogleStore struct {
	svc     *sheetsapi.Service
	id      string
	sheet   string
	limiter *rate.Limiter
}

// NewService builds a Sheets API client.
func NewService(ctx context.Context, opts ...option.ClientOption) (*sheetsapi.Service, error) {
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return svc, nil
}

// NewLimiter paces API calls at rps requests per second. rps <= 0 disables pacing.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// NewGoogleStore reads and writes the named tab of spreadsheet id.
func NewGoogleStore(svc *sheetsapi.Service, id, sheet string, limiter *rate.Limiter) *GoogleStore {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &GoogleStore{svc: svc, id: id, sheet: sheet, limiter: limiter}
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func (s *GoogleStore) get(ctx context.Context, a1 string) ([][]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.id, a1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", a1, err)
	}
	return stringify(resp.Values), nil
}

func stringify(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out
}

// Header returns row 1.
func (s *GoogleStore) Header(ctx context.Context) ([]string, error) {
	rows, err := s.get(ctx, quoteSheet(s.sheet)+"!1:1")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Row reads the header and the given row in one batch.
func (s *GoogleStore) Row(ctx context.Context, row int) (map[string]string, error) {
	if err := checkRow(row); err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	sheet := quoteSheet(s.sheet)
	resp, err := s.svc.Spreadsheets.Values.BatchGet(s.id).
		Ranges(sheet+"!1:1", fmt.Sprintf("%s!%d:%d", sheet, row, row)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets batch get row %d: %w", row, err)
	}
	if len(resp.ValueRanges) != 2 {
		return nil, fmt.Errorf("sheets batch get row %d: got %d ranges", row, len(resp.ValueRanges))
	}
	header := stringify(resp.ValueRanges[0].Values)
	if len(header) == 0 {
		return nil, errors.New("sheet has no header row")
	}
	var cells []string
	if data := stringify(resp.ValueRanges[1].Values); len(data) > 0 {
		cells = data[0]
	}
	return Zip(header[0], cells), nil
}

// RowCount returns the last row with any data.
func (s *GoogleStore) RowCount(ctx context.Context) (int, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// All reads the whole tab in one call.
func (s *GoogleStore) All(ctx context.Context) ([][]string, error) {
	return s.get(ctx, quoteSheet(s.sheet))
}

// WriteCells writes each known column as its own range in a single batch update.
func (s *GoogleStore) WriteCells(ctx context.Context, row int, values map[string]string) error {
	if err := checkRow(row); err != nil {
		return err
	}
	header, err := s.Header(ctx)
	if err != nil {
		return err
	}
	idx := ColumnIndex(header)
	names := make([]string, 0, len(values))
	for name := range values {
		if _, ok := idx[name]; ok {
			names = append(names, name)
		} else {
			telemetry.Debug("sheets.write.skip_column", map[string]any{"column": name, "row": row})
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	sheet := quoteSheet(s.sheet)
	data := make([]*sheetsapi.ValueRange, 0, len(names))
	for _, name := range names {
		data = append(data, &sheetsapi.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", sheet, ColumnLetter(idx[name]), row),
			Values: [][]interface{}{{values[name]}},
		})
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = s.svc.Spreadsheets.Values.BatchUpdate(s.id, &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets batch update row %d: %w", row, err)
	}
	return nil
}

var _ RowStore = (*GoogleStore)(nil)

// GoogleTable reads the first tab of a spreadsheet as a guideline table.
type GoogleTable struct {
	svc     *sheetsapi.Service
	id      string
	limiter *rate.Limiter
}

// NewGoogleTable returns a guideline source for spreadsheet id.
func NewGoogleTable(svc *sheetsapi.Service, id string, limiter *rate.Limiter) *GoogleTable {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &GoogleTable{svc: svc, id: id, limiter: limiter}
}

// Rows returns every populated row of the first tab.
func (t *GoogleTable) Rows(ctx context.Context) ([][]string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ss, err := t.svc.Spreadsheets.Get(t.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets metadata: %w", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return nil, errors.New("guideline spreadsheet has no tabs")
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	a1 := quoteSheet(ss.Sheets[0].Properties.Title)
	resp, err := t.svc.Spreadsheets.Values.Get(t.id, a1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", a1, err)
	}
	return stringify(resp.Values), nil
}
