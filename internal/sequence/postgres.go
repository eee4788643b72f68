package sequence

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres keeps the counter in the form_id_sequence table. The first call
// inserts seed+1; later calls increment in the same statement.
type Postgres struct {
	DB    *sql.DB
	Name  string
	Seed  int64
	Width int
}

// Next atomically increments the counter row.
func (p *Postgres) Next(ctx context.Context) (string, error) {
	const query = `
INSERT INTO form_id_sequence (name, last_value, updated_at)
VALUES ($1, $2::bigint, NOW())
ON CONFLICT (name) DO UPDATE
SET last_value = form_id_sequence.last_value + 1::bigint, updated_at = NOW()
RETURNING last_value`
	name := p.Name
	if name == "" {
		name = DefaultName
	}
	var next int64
	if err := p.DB.QueryRowContext(ctx, query, name, p.Seed+1).Scan(&next); err != nil {
		return "", fmt.Errorf("sequence next: %w", err)
	}
	return Format(next, p.Width), nil
}

var _ Sequence = (*Postgres)(nil)
