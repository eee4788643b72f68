package queue

import (
	"context"
	"sync"
)

// Client sends intake messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Memory records sent messages. Used by tests and local runs without SQS.
type Memory struct {
	mu   sync.Mutex
	sent []Message
}

// Send appends msg.
func (m *Memory) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of every message sent so far.
func (m *Memory) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

var _ Client = (*Memory)(nil)
