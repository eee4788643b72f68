// Package sequence issues monotonically increasing, zero-padded form identifiers.
package sequence

import (
	"context"
	"fmt"
	"sync"
)

// DefaultName is the counter used for intake form ids.
const DefaultName = "form_id"

// Sequence hands out the next identifier.
type Sequence interface {
	Next(ctx context.Context) (string, error)
}

// Format zero-pads n to width digits.
func Format(n int64, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

// Memory is an in-process Sequence for tests and single-run CLI use.
type Memory struct {
	mu    sync.Mutex
	last  int64
	width int
}

// NewMemory starts a counter after seed.
func NewMemory(seed int64, width int) *Memory {
	return &Memory{last: seed, width: width}
}

// Next increments and returns the counter.
func (m *Memory) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last++
	return Format(m.last, m.width), nil
}

var _ Sequence = (*Memory)(nil)
