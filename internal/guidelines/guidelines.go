// Package guidelines loads the pantry distribution rules table.
//
// The table comes from a spreadsheet whose header row names the columns; rows
// are keyed by their lowercased item name and the last duplicate wins.
package guidelines

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Header names, compared case-insensitively after trimming.
const (
	ColItem              = "item"
	ColPlaceholder       = "placeholders"
	ColPerPet            = "per pet"
	ColHouseholdMax      = "household max"
	ColNotes             = "notes"
	ColAmountGiven       = "amountgiven"
	ColAmountPlaceholder = "amount placeholder"
)

var requiredColumns = []string{
	ColItem,
	ColPlaceholder,
	ColPerPet,
	ColHouseholdMax,
	ColNotes,
	ColAmountGiven,
	ColAmountPlaceholder,
}

// Rule is one distribution guideline. A nil amount means the cell was empty or not numeric.
type Rule struct {
	ItemKey           string
	DisplayName       string
	Placeholder       string
	PerIndividual     *decimal.Decimal
	HouseholdMax      *decimal.Decimal
	Notes             string
	AmountGiven       string
	AmountPlaceholder string
}

// Table maps lowercased item names to rules.
type Table map[string]Rule

// Lookup returns the rule for key, matched exactly.
func (t Table) Lookup(key string) (Rule, bool) {
	r, ok := t[key]
	return r, ok
}

// ConfigError reports required columns absent from the header row.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("guidelines: missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Source yields the raw guideline sheet, header row first.
type Source interface {
	Rows(ctx context.Context) ([][]string, error)
}

// LoadFrom reads all rows from src and parses them.
func LoadFrom(ctx context.Context, src Source) (Table, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("guidelines: read source: %w", err)
	}
	if len(rows) == 0 {
		return nil, &ConfigError{Missing: append([]string(nil), requiredColumns...)}
	}
	return Load(rows[0], rows[1:])
}

// Load parses data rows against header. All required columns must be present;
// otherwise no table is returned.
func Load(header []string, rows [][]string) (Table, error) {
	index := map[string]int{}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	table := Table{}
	for _, row := range rows {
		item := cell(row, ColItem)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		table[key] = Rule{
			ItemKey:           key,
			DisplayName:       item,
			Placeholder:       cell(row, ColPlaceholder),
			PerIndividual:     ParseAmount(cell(row, ColPerPet)),
			HouseholdMax:      ParseAmount(cell(row, ColHouseholdMax)),
			Notes:             cell(row, ColNotes),
			AmountGiven:       cell(row, ColAmountGiven),
			AmountPlaceholder: cell(row, ColAmountPlaceholder),
		}
	}
	return table, nil
}

var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseAmount reads the leading numeric prefix of raw ("2 bags" -> 2).
// Empty or non-numeric cells yield nil, never zero.
func ParseAmount(raw string) *decimal.Decimal {
	m := leadingNumber.FindString(strings.TrimSpace(raw))
	if m == "" {
		return nil
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return nil
	}
	return &d
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(h)))
}
